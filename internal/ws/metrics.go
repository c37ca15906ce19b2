package ws

import "expvar"

var (
	metricClientsConnected = expvar.NewInt("ws_clients_connected")
	metricFramesSent       = expvar.NewInt("ws_frames_sent_total")
	metricFramesDropped    = expvar.NewInt("ws_frames_dropped_total")
	metricSlowKicks        = expvar.NewInt("ws_slow_client_kicks_total")
)
