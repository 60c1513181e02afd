package rpc

import "context"

// Callbacks surface session lifecycle events to the application.
type Callbacks struct {
	OnOpenSuccess  func()
	OnOpenError    func(error)
	OnClose        func(error)
	OnNotification func(Notification)
}

// ConnectOrReuse establishes a session without ever running two connection
// attempts at once.
//
// A nil existing session is constructed from opts with OnClose and
// OnNotification wired in. A CONNECTING or CONNECTED session is returned
// untouched and no open callback fires. A NOT_CONNECTED session is reset and
// reconnected. The open outcome is reported asynchronously through
// OnOpenSuccess or OnOpenError.
func ConnectOrReuse(ctx context.Context, existing *Session, opts SessionOptions, cb Callbacks) *Session {
	session := existing
	if session == nil {
		session = NewSession(opts)
		if cb.OnClose != nil {
			session.SetCloseHandler(cb.OnClose)
		}
		if cb.OnNotification != nil {
			session.Router().Register(cb.OnNotification)
		}
	} else {
		switch session.Status() {
		case StatusConnecting, StatusConnected:
			return session
		}
		session.Reset()
	}

	established := session.Connect(ctx)
	go func() {
		_, err := established.Await(context.Background())
		if err != nil {
			if cb.OnOpenError != nil {
				cb.OnOpenError(err)
			}
			return
		}
		if cb.OnOpenSuccess != nil {
			cb.OnOpenSuccess()
		}
	}()
	return session
}
