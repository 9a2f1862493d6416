package rtsp

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPlayWithoutSessionWritesNothing(t *testing.T) {
	client, conn := connectedClient(t, "/stream")

	for _, call := range []func() (*Response, error){
		func() (*Response, error) { return client.Play(context.Background(), nil) },
		func() (*Response, error) { return client.Pause(context.Background()) },
		func() (*Response, error) { return client.Teardown(context.Background()) },
	} {
		res, err := call()
		require.ErrorIs(t, err, ErrSessionNotSet)
		require.Nil(t, res)
	}

	// nothing reached the socket and no sequence number was consumed
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(50*time.Millisecond)))
	_, err := conn.br.Peek(1)
	require.Error(t, err)

	pending := async(func() (*Response, error) { return client.Options(context.Background()) })
	req := conn.readRequest(t)
	require.Equal(t, MethodOptions, req.Method)
	require.Equal(t, "1", req.Sequence)
	conn.writeResponse(t, okResponse(req.Sequence, nil))
	require.NoError(t, await(t, pending).err)
}

func TestSessionCommands(t *testing.T) {
	client, conn := connectedClient(t, "/live/stream")
	target := client.URL().String()
	client.SetSession("12345678")
	require.Equal(t, "12345678", client.Session())

	for _, tc := range []struct {
		method Method
		call   func() (*Response, error)
		rng    string
	}{
		{MethodPlay, func() (*Response, error) {
			return client.Play(context.Background(), &PlayOptions{Range: "npt=0-"})
		}, "npt=0-"},
		{MethodPause, func() (*Response, error) { return client.Pause(context.Background()) }, ""},
		{MethodGetParameter, func() (*Response, error) { return client.GetParameter(context.Background()) }, ""},
		{MethodTeardown, func() (*Response, error) { return client.Teardown(context.Background()) }, ""},
	} {
		pending := async(tc.call)
		req := conn.readRequest(t)
		require.Equal(t, tc.method, req.Method)
		require.Equal(t, target, req.Url)
		require.Equal(t, "12345678", req.Header.Get(HeaderSession))
		require.Equal(t, tc.rng, req.Header.Get(HeaderRange))
		conn.writeResponse(t, okResponse(req.Sequence, nil))
		require.NoError(t, await(t, pending).err)
	}
}

func TestSetupResolvesControl(t *testing.T) {
	client, conn := connectedClient(t, "/live/stream")
	base := client.URL()

	pending := async(func() (*Response, error) {
		return client.Setup(context.Background(), "trackID=0", "RTP/AVP/TCP;unicast;interleaved=0-1")
	})
	req := conn.readRequest(t)
	require.Equal(t, MethodSetup, req.Method)
	require.Equal(t, "rtsp://"+base.Host+"/live/stream/trackID=0", req.Url)
	require.Equal(t, "RTP/AVP/TCP;unicast;interleaved=0-1", req.Header.Get(HeaderTransport))
	require.Empty(t, req.Header.Get(HeaderSession))
	conn.writeResponse(t, okResponse(req.Sequence, nil))
	require.NoError(t, await(t, pending).err)

	client.SetSession("abc")
	absolute := "rtsp://" + base.Host + "/other/track2"
	pending = async(func() (*Response, error) {
		return client.Setup(context.Background(), absolute, "RTP/AVP/TCP;unicast;interleaved=2-3")
	})
	req = conn.readRequest(t)
	require.Equal(t, absolute, req.Url)
	require.Equal(t, "abc", req.Header.Get(HeaderSession))
	conn.writeResponse(t, okResponse(req.Sequence, nil))
	require.NoError(t, await(t, pending).err)
}

func TestResolveControl(t *testing.T) {
	base, err := url.Parse("rtsp://host:554/a/b/")
	require.NoError(t, err)
	u, err := resolveControl(base, "track1")
	require.NoError(t, err)
	require.Equal(t, "rtsp://host:554/a/b/track1", u.String())

	base, err = url.Parse("rtsp://host/stream")
	require.NoError(t, err)
	u, err = resolveControl(base, "trackID=3")
	require.NoError(t, err)
	require.Equal(t, "rtsp://host/stream/trackID=3", u.String())
}

func TestTargetStripsCredentials(t *testing.T) {
	server := newTestServer(t)
	client := NewClient(Config{UserAgent: "tester"})
	raw := "rtsp://user:secret@" + server.listener.Addr().String() + "/stream"
	require.NoError(t, client.Connect(context.Background(), raw))
	defer client.Close()
	conn := server.accept(t)

	pending := async(func() (*Response, error) { return client.Options(context.Background()) })
	req := conn.readRequest(t)
	require.Equal(t, "rtsp://"+server.listener.Addr().String()+"/stream", req.Url)
	require.Equal(t, "tester", req.Header.Get(HeaderUserAgent))
	conn.writeResponse(t, okResponse(req.Sequence, nil))
	require.NoError(t, await(t, pending).err)
}
