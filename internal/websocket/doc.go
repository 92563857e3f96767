// Package websocket pushes dashboard events, such as workbook reloads, to
// connected browsers. A single Hub goroutine owns the client set; each
// Client runs a read pump and a write pump.
package websocket
