package describe

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bilbercode/rtsp-control/internal/rtsp"
)

const testSDP = "v=0\r\n" +
	"o=- 0 0 IN IP4 127.0.0.1\r\n" +
	"s=front_door\r\n" +
	"c=IN IP4 0.0.0.0\r\n" +
	"t=0 0\r\n" +
	"a=control:*\r\n" +
	"m=video 0 RTP/AVP 96\r\n" +
	"a=rtpmap:96 H264/90000\r\n" +
	"a=control:trackID=0\r\n" +
	"m=audio 0 RTP/AVP 97\r\n" +
	"a=rtpmap:97 MPEG4-GENERIC/48000/2\r\n" +
	"a=control:rtsp://other.example.com/audio\r\n"

func describeResponse(header http.Header, body string) *rtsp.Response {
	if header == nil {
		header = http.Header{}
	}
	header.Set("Content-Type", "application/sdp")
	return &rtsp.Response{Code: 200, Message: "OK", Sequence: "2", Header: header, Body: []byte(body)}
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestParseUsesContentBase(t *testing.T) {
	header := http.Header{}
	header.Set("Content-Base", "rtsp://camera.local/stream/")
	d, err := Parse(mustParseURL(t, "rtsp://camera.local/stream"), describeResponse(header, testSDP))
	require.NoError(t, err)

	require.Equal(t, "rtsp://camera.local/stream/", d.Base.String())
	require.Len(t, d.Medias, 2)
	require.Equal(t, "video", d.Medias[0].Type)
	require.Equal(t, "rtsp://camera.local/stream/trackID=0", d.Medias[0].Control)
	require.Equal(t, map[uint8]string{96: "H264/90000"}, d.Medias[0].Formats)
	require.Equal(t, "audio", d.Medias[1].Type)
	require.Equal(t, "rtsp://other.example.com/audio", d.Medias[1].Control)

	video, ok := d.Find("h264")
	require.True(t, ok)
	require.Same(t, d.Medias[0], video)
	_, ok = d.Find("VP8")
	require.False(t, ok)
}

func TestParseFallsBackToRequestURL(t *testing.T) {
	d, err := Parse(mustParseURL(t, "rtsp://camera.local/stream"), describeResponse(nil, testSDP))
	require.NoError(t, err)
	require.Equal(t, "rtsp://camera.local/stream/trackID=0", d.Medias[0].Control)
}

func TestParseErrors(t *testing.T) {
	request := mustParseURL(t, "rtsp://camera.local/stream")

	_, err := Parse(request, &rtsp.Response{Code: 404, Message: "Not Found", Header: http.Header{}})
	require.ErrorIs(t, err, ErrBadStatus)

	res := describeResponse(nil, testSDP)
	res.Header.Set("Content-Type", "text/plain")
	_, err = Parse(request, res)
	require.ErrorIs(t, err, ErrNotSDP)

	_, err = Parse(request, describeResponse(nil, "v=0\r\no=- 0 0 IN IP4 127.0.0.1\r\ns=-\r\nt=0 0\r\n"))
	require.ErrorIs(t, err, ErrNoMedia)

	_, err = Parse(request, describeResponse(nil, "v=0\r\no=- 0 0 IN IP4 127.0.0.1\r\ns=-\r\nt=0 0\r\nm=video 0 RTP/AVP 96\r\n"))
	require.ErrorIs(t, err, ErrNoControlURL)
}
