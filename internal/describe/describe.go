package describe

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pion/sdp/v3"

	"github.com/bilbercode/rtsp-control/internal/rtsp"
)

var (
	ErrNotSDP       = errors.New("describe response is not application/sdp")
	ErrNoMedia      = errors.New("session description has no media")
	ErrBadStatus    = errors.New("describe request failed")
	ErrNoControlURL = errors.New("media has no control attribute")
)

type Media struct {
	// Type is the media kind, "video", "audio" and so on.
	Type string
	// Control is the absolute URL to SETUP for this media.
	Control string
	// Formats holds the rtpmap encodings keyed by payload type.
	Formats map[uint8]string
}

type Description struct {
	// Base is the URL media controls are resolved against.
	Base   *url.URL
	Medias []*Media
	SDP    *sdp.SessionDescription
}

// Parse reads the session description carried by a DESCRIBE response.
// request is the URL the DESCRIBE was sent to and is used as the base when
// the server sends neither Content-Base nor Content-Location.
func Parse(request *url.URL, res *rtsp.Response) (*Description, error) {
	if !res.IsSuccess() {
		return nil, fmt.Errorf("%w: %d %s", ErrBadStatus, res.Code, res.Message)
	}
	ct := strings.TrimSpace(strings.Split(res.Header.Get("Content-Type"), ";")[0])
	if ct != "" && !strings.EqualFold(ct, "application/sdp") {
		return nil, fmt.Errorf("%w: %s", ErrNotSDP, ct)
	}

	base, err := baseURL(request, res)
	if err != nil {
		return nil, err
	}

	sessionDescription := &sdp.SessionDescription{}
	err = sessionDescription.Unmarshal(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SDP for URL %s: %w", base.String(), err)
	}
	if len(sessionDescription.MediaDescriptions) == 0 {
		return nil, ErrNoMedia
	}

	// a session level control other than "*" replaces the base
	if control, ok := sessionDescription.Attribute("control"); ok && control != "*" {
		base, err = resolve(base, control)
		if err != nil {
			return nil, err
		}
	}

	d := &Description{Base: base, SDP: sessionDescription}
	for i, md := range sessionDescription.MediaDescriptions {
		control, ok := md.Attribute("control")
		if !ok {
			return nil, fmt.Errorf("%w: media %d", ErrNoControlURL, i)
		}
		u, err := resolve(base, control)
		if err != nil {
			return nil, err
		}
		d.Medias = append(d.Medias, &Media{
			Type:    md.MediaName.Media,
			Control: u.String(),
			Formats: formats(md),
		})
	}
	return d, nil
}

// Find returns the first media whose formats mention encoding, e.g. "H264".
func (d *Description) Find(encoding string) (*Media, bool) {
	for _, m := range d.Medias {
		for _, f := range m.Formats {
			if strings.HasPrefix(strings.ToUpper(f), strings.ToUpper(encoding)+"/") {
				return m, true
			}
		}
	}
	return nil, false
}

func baseURL(request *url.URL, res *rtsp.Response) (*url.URL, error) {
	for _, h := range []string{"Content-Base", "Content-Location"} {
		if v := res.Header.Get(h); v != "" {
			u, err := url.Parse(v)
			if err != nil {
				return nil, fmt.Errorf("failed to parse %s %q: %w", h, v, err)
			}
			return u, nil
		}
	}
	u := *request
	return &u, nil
}

func resolve(base *url.URL, control string) (*url.URL, error) {
	ref, err := url.Parse(control)
	if err != nil {
		return nil, fmt.Errorf("failed to parse control %q: %w", control, err)
	}
	if ref.IsAbs() {
		return ref, nil
	}
	dir := *base
	dir.RawPath = ""
	dir.Path = strings.TrimSuffix(dir.Path, "/") + "/"
	return dir.ResolveReference(ref), nil
}

func formats(md *sdp.MediaDescription) map[uint8]string {
	out := make(map[uint8]string)
	for _, a := range md.Attributes {
		if a.Key != "rtpmap" {
			continue
		}
		pt, encoding, ok := strings.Cut(a.Value, " ")
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(pt, 10, 8)
		if err != nil {
			continue
		}
		out[uint8(n)] = strings.TrimSpace(encoding)
	}
	return out
}
