package transport

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Parse reads the comma separated transport specifications of one or more
// Transport header values.
func Parse(values []string) (Header, error) {
	var opts []Option
	for _, value := range values {
		for _, spec := range strings.Split(value, ",") {
			spec = strings.TrimSpace(spec)
			if spec == "" {
				continue
			}
			o, err := parseOption(spec)
			if err != nil {
				return nil, err
			}
			opts = append(opts, o)
		}
	}
	if len(opts) == 0 {
		return nil, ErrMalformedTransport
	}

	return &header{options: opts}, nil
}

func parseOption(in string) (Option, error) {
	parts := strings.Split(in, ";")
	opt := &option{}
	switch strings.ToUpper(parts[0]) {
	case "RTP/AVP", "RTP/AVP/UDP":
		opt.protocol = ProtocolUDP
	case "RTP/AVP/TCP":
		opt.protocol = ProtocolTCP
	default:
		return nil, ErrUnsupportedTransport
	}

	for _, part := range parts[1:] {
		key, value, hasValue := strings.Cut(strings.TrimSpace(part), "=")
		var err error
		switch strings.ToLower(key) {
		case "":
		case "unicast":
			opt.unicast = true
		case "multicast":
			opt.unicast = false
		case "destination":
			opt.params = append(opt.params, Destination(value))
		case "source":
			opt.params = append(opt.params, Source(value))
		case "append":
			opt.params = append(opt.params, Append(""))
		case "interleaved":
			var channels []int
			channels, err = parseRange(key, value, hasValue)
			opt.params = append(opt.params, Interleaved(channels))
		case "client_port":
			var ports []int
			ports, err = parseRange(key, value, hasValue)
			opt.params = append(opt.params, ClientPort(ports))
		case "server_port":
			var ports []int
			ports, err = parseRange(key, value, hasValue)
			opt.params = append(opt.params, ServerPort(ports))
		case "port":
			var ports []int
			ports, err = parseRange(key, value, hasValue)
			opt.params = append(opt.params, Port(ports))
		case "ttl":
			var seconds int
			seconds, err = parseInt(key, value, hasValue)
			opt.params = append(opt.params, TTL(time.Second*time.Duration(seconds)))
		case "layers":
			var layers int
			layers, err = parseInt(key, value, hasValue)
			opt.params = append(opt.params, Layers(layers))
		case "ssrc":
			if !hasValue {
				return nil, fmt.Errorf("%w: ssrc expects an identifier", ErrMalformedTransport)
			}
			var ssrc uint64
			ssrc, err = strconv.ParseUint(value, 16, 32)
			if err != nil {
				err = fmt.Errorf("%w: failed to parse ssrc %q: %v", ErrMalformedTransport, value, err)
			}
			opt.params = append(opt.params, SSRC(ssrc))
		case "mode":
			if !hasValue {
				return nil, fmt.Errorf("%w: mode expects a value", ErrMalformedTransport)
			}
			opt.params = append(opt.params, Mode(strings.Trim(value, `"`)))
		default:
			// unknown parameters are ignored so servers can extend the header
		}
		if err != nil {
			return nil, err
		}
	}
	return opt, nil
}

func parseRange(key, value string, hasValue bool) ([]int, error) {
	if !hasValue || value == "" {
		return nil, fmt.Errorf("%w: %s expects at least one value", ErrMalformedTransport, key)
	}
	bounds := strings.SplitN(value, "-", 2)
	out := make([]int, 0, len(bounds))
	for _, b := range bounds {
		n, err := strconv.Atoi(b)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse %s, received %s", ErrMalformedTransport, key, value)
		}
		out = append(out, n)
	}
	return out, nil
}

func parseInt(key, value string, hasValue bool) (int, error) {
	if !hasValue {
		return 0, fmt.Errorf("%w: %s expects a value", ErrMalformedTransport, key)
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to parse %s value %q", ErrMalformedTransport, key, value)
	}
	return n, nil
}
