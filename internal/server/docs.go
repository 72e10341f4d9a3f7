package server

// General API annotations for swag. Endpoint annotations live in the
// handler files.
//
// @title Listing Map API
// @version 1.0
// @description Live map of available rental listings. Markers are streamed
// @description to browsers over WebSocket; the map stays subscribed to the
// @description listing store while at least one browser is connected.
//
// @host localhost:8080
// @BasePath /api/v1
