package rpc_test

import (
	"encoding/json"
	"errors"
	"testing"

	"vidshelf/internal/rpc"
)

func TestRequestMarshalsEmptyArgsAsArray(t *testing.T) {
	data, err := json.Marshal(rpc.Request{RequestID: 4, Name: "list_videos"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"request_id":4,"name":"list_videos","args":[]}`
	if string(data) != want {
		t.Fatalf("request = %s, want %s", data, want)
	}
}

func TestParseFrameVariants(t *testing.T) {
	cases := []struct {
		name  string
		frame string
		check func(t *testing.T, f rpc.Frame)
	}{
		{
			name:  "ok response",
			frame: `{"message_type":"response","request_id":1,"type":"ok"}`,
			check: func(t *testing.T, f rpc.Frame) {
				resp, ok := f.(*rpc.Response)
				if !ok || resp.RequestID != 1 {
					t.Fatalf("frame = %#v", f)
				}
				if _, ok := resp.Result.(rpc.OK); !ok {
					t.Fatalf("result = %#v, want OK", resp.Result)
				}
			},
		},
		{
			name:  "data response",
			frame: `{"message_type":"response","request_id":2,"type":"data","data_type":"get_video","data":{"title":"x"}}`,
			check: func(t *testing.T, f rpc.Frame) {
				data, ok := f.(*rpc.Response).Result.(rpc.Data)
				if !ok || data.Name != "get_video" || string(data.Payload) != `{"title":"x"}` {
					t.Fatalf("result = %#v", f.(*rpc.Response).Result)
				}
			},
		},
		{
			name:  "error response",
			frame: `{"message_type":"response","request_id":3,"type":"error","error_type":"Forbidden","message":"read only"}`,
			check: func(t *testing.T, f rpc.Frame) {
				failure, ok := f.(*rpc.Response).Result.(rpc.Failure)
				if !ok || failure.Kind != "Forbidden" || failure.Message != "read only" {
					t.Fatalf("result = %#v", f.(*rpc.Response).Result)
				}
				if got := failure.Err().Error(); got != "Forbidden: read only" {
					t.Fatalf("error text = %q", got)
				}
			},
		},
		{
			name:  "data response with null payload",
			frame: `{"message_type":"response","request_id":5,"type":"data","data_type":"find_video","data":null}`,
			check: func(t *testing.T, f rpc.Frame) {
				data, ok := f.(*rpc.Response).Result.(rpc.Data)
				if !ok || string(data.Payload) != "null" {
					t.Fatalf("result = %#v", f.(*rpc.Response).Result)
				}
			},
		},
		{
			name:  "notification with null parameters",
			frame: `{"message_type":"notification","name":"library_cleared","parameters":null}`,
			check: func(t *testing.T, f rpc.Frame) {
				n, ok := f.(*rpc.Notification)
				if !ok || n.Name != "library_cleared" || string(n.Parameters) != "null" {
					t.Fatalf("frame = %#v", f)
				}
			},
		},
		{
			name:  "notification",
			frame: `{"message_type":"notification","name":"video_added","parameters":[1,2]}`,
			check: func(t *testing.T, f rpc.Frame) {
				n, ok := f.(*rpc.Notification)
				if !ok || n.Name != "video_added" || string(n.Parameters) != `[1,2]` {
					t.Fatalf("frame = %#v", f)
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := rpc.ParseFrame([]byte(tc.frame))
			if err != nil {
				t.Fatalf("ParseFrame: %v", err)
			}
			tc.check(t, f)
		})
	}
}

func TestParseFrameErrorClasses(t *testing.T) {
	cases := []struct {
		name  string
		frame string
		want  error
	}{
		{"invalid json", `{"message_type":`, rpc.ErrMalformedFrame},
		{"not an object", `"response"`, rpc.ErrMalformedFrame},
		{"missing message type", `{"name":"x"}`, rpc.ErrMalformedFrame},
		{"null message type", `{"message_type":null,"name":"x"}`, rpc.ErrMalformedFrame},
		{"unknown message type", `{"message_type":"ping"}`, rpc.ErrUnknownMessageType},
		{"response without id", `{"message_type":"response","type":"ok"}`, rpc.ErrProtocol},
		{"response without type", `{"message_type":"response","request_id":1}`, rpc.ErrProtocol},
		{"unknown response type", `{"message_type":"response","request_id":1,"type":"partial"}`, rpc.ErrProtocol},
		{"data without data_type", `{"message_type":"response","request_id":1,"type":"data","data":1}`, rpc.ErrProtocol},
		{"notification without name", `{"message_type":"notification","parameters":{}}`, rpc.ErrProtocol},
		{"notification without parameters", `{"message_type":"notification","name":"x"}`, rpc.ErrProtocol},
		{"null request id", `{"message_type":"response","request_id":null,"type":"ok"}`, rpc.ErrProtocol},
		{"null response type", `{"message_type":"response","request_id":1,"type":null}`, rpc.ErrProtocol},
		{"data without payload", `{"message_type":"response","request_id":1,"type":"data","data_type":"get_video"}`, rpc.ErrProtocol},
		{"null data_type", `{"message_type":"response","request_id":1,"type":"data","data_type":null,"data":1}`, rpc.ErrProtocol},
		{"null notification name", `{"message_type":"notification","name":null,"parameters":{}}`, rpc.ErrProtocol},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := rpc.ParseFrame([]byte(tc.frame))
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestEndpointURL(t *testing.T) {
	cases := []struct {
		endpoint rpc.Endpoint
		want     string
	}{
		{rpc.Endpoint{Host: "127.0.0.1", Port: 8765}, "ws://127.0.0.1:8765/"},
		{rpc.Endpoint{Host: "library.lan", Port: 443, Secure: true, Path: "/rpc"}, "wss://library.lan:443/rpc"},
		{rpc.Endpoint{Host: "::1", Port: 9000, Path: "/"}, "ws://[::1]:9000/"},
	}
	for _, tc := range cases {
		if got := tc.endpoint.URL(); got != tc.want {
			t.Fatalf("URL() = %q, want %q", got, tc.want)
		}
	}
}
