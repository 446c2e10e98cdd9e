package ws

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"voxeledit.ai/internal/protocol"
)

const msgTypeLabel = "msg_type"

var (
	wsConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connected_clients",
		Help: "The number of connected clients.",
	})

	wsReceivedMsgs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_received_msgs",
		Help: "The number of messages received from WebSocket connections.",
	}, []string{
		msgTypeLabel,
	})

	wsReceiveErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_receive_errors",
		Help: "The errors that occured while receiving a websocket message.",
	})

	wsSentMsgs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_sent_msgs",
		Help: "The number of messages sent to WebSocket connections.",
	})

	wsSentBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_sent_bytes",
		Help: "The number of bytes sent to WebSocket connections.",
	})

	wsSendErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_send_errors",
		Help: "The errors that occured while sending a websocket message.",
	})
)

func instrumentConnect()    { wsConnectedClients.Inc() }
func instrumentDisconnect() { wsConnectedClients.Dec() }

func instrumentReceived(msgType string) {
	if !protocol.IsRequestType(msgType) {
		msgType = "unknown"
	}
	wsReceivedMsgs.
		With(prometheus.Labels{msgTypeLabel: msgType}).
		Inc()
}

func instrumentReceiveError() { wsReceiveErrors.Inc() }

func instrumentSent(n int) {
	wsSentMsgs.Inc()
	wsSentBytes.Add(float64(n))
}

func instrumentSendError() { wsSendErrors.Inc() }
