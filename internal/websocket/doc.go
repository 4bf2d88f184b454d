// Package websocket pushes dashboard updates to browsers over a WebSocket.
//
// A client sends a selection and receives the rendered dashboard for it:
//
//	-> {"type":"select","id":"1","year":"2021","term":"Fall"}
//	<- {"type":"dashboard","request_id":"1","data":{...},"timestamp":"..."}
//
// Invalid selections are answered with an error message carrying the same
// error code the HTTP API would return. {"type":"heartbeat"} is accepted and
// ignored. The Hub owns the client set; each Client runs a read pump and a
// write pump goroutine.
package websocket
