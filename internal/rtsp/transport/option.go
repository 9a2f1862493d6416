package transport

import "strings"

type option struct {
	unicast  bool
	protocol Protocol
	params   []Parameter
}

// NewInterleaved describes RTP and RTCP multiplexed onto the control
// connection on channels rtp and rtp+1.
func NewInterleaved(rtp int) Option {
	return &option{
		unicast:  true,
		protocol: ProtocolTCP,
		params:   []Parameter{Interleaved{rtp, rtp + 1}},
	}
}

// NewUDP describes unicast UDP delivery to the client ports rtp and rtp+1.
func NewUDP(rtp int) Option {
	return &option{
		unicast:  true,
		protocol: ProtocolUDP,
		params:   []Parameter{ClientPort{rtp, rtp + 1}},
	}
}

func (o *option) Protocol() Protocol {
	return o.protocol
}

func (o *option) IsUnicast() bool {
	return o.unicast
}

func (o *option) Parameters() []Parameter {
	return o.params
}

func (o *option) Interleaved() (Interleaved, bool) {
	for _, p := range o.params {
		if v, ok := p.(Interleaved); ok {
			return v, true
		}
	}
	return nil, false
}

func (o *option) ServerPort() (ServerPort, bool) {
	for _, p := range o.params {
		if v, ok := p.(ServerPort); ok {
			return v, true
		}
	}
	return nil, false
}

func (o *option) String() string {
	segments := []string{"RTP/AVP"}
	if o.protocol == ProtocolTCP {
		segments[0] += "/TCP"
	}
	if o.unicast {
		segments = append(segments, "unicast")
	} else {
		segments = append(segments, "multicast")
	}

	for _, param := range o.params {
		segments = append(segments, param.String())
	}

	return strings.Join(segments, ";")
}

type header struct {
	options []Option
}

func (h *header) Options() []Option {
	return h.options
}

func (h *header) String() string {
	parts := make([]string, 0, len(h.options))
	for _, o := range h.options {
		parts = append(parts, o.String())
	}
	return strings.Join(parts, ",")
}
