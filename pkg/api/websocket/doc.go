// Package websocket provides real-time signal streaming via WebSocket.
//
// Clients can connect to /api/v1/runs/:id/ws to receive every signal
// appended to the run as it happens.
package websocket
