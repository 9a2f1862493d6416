package media

import (
	"sync"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

var framesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
	Name:      "interleaved_frames",
	Namespace: "rtsp_control",
	Help:      "number of interleaved frames received on the control connection",
}, []string{"kind"})

type Stats struct {
	RTPPackets    uint64
	RTCPPackets   uint64
	SenderReports uint64
	Invalid       uint64
	SSRC          uint32
	Sequence      uint16
}

// Observer decodes interleaved frames, RTP on even channels and RTCP on odd
// ones, and keeps running totals.
type Observer struct {
	mu     sync.Mutex
	stats  Stats
	logger *log.Entry
}

func NewObserver(logger *log.Entry) *Observer {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Observer{logger: logger}
}

// HandleFrame matches the signature of rtsp.Client.SubscribeInterleavedFrames.
func (o *Observer) HandleFrame(channel uint8, payload []byte) {
	if channel%2 == 0 {
		o.handleRTP(payload)
		return
	}
	o.handleRTCP(payload)
}

func (o *Observer) handleRTP(payload []byte) {
	packet := &rtp.Packet{}
	err := packet.Unmarshal(payload)

	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.stats.Invalid++
		framesReceived.WithLabelValues("invalid").Inc()
		o.logger.WithError(err).Debug("dropping invalid RTP packet")
		return
	}
	o.stats.RTPPackets++
	o.stats.SSRC = packet.SSRC
	o.stats.Sequence = packet.SequenceNumber
	framesReceived.WithLabelValues("rtp").Inc()
}

func (o *Observer) handleRTCP(payload []byte) {
	packets, err := rtcp.Unmarshal(payload)

	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.stats.Invalid++
		framesReceived.WithLabelValues("invalid").Inc()
		o.logger.WithError(err).Debug("dropping invalid RTCP packet")
		return
	}
	for _, p := range packets {
		o.stats.RTCPPackets++
		framesReceived.WithLabelValues("rtcp").Inc()
		if _, ok := p.(*rtcp.SenderReport); ok {
			o.stats.SenderReports++
		}
	}
}

func (o *Observer) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}
