package rpc

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"mcsrc/internal/decompiler"
	"mcsrc/internal/gateway/api/viewerv1"
	"mcsrc/internal/observable"
	"mcsrc/internal/session"
	"mcsrc/internal/state"
	"mcsrc/internal/usage"
)

// StateHandler streams session state to the browser and applies the
// selections it sends back.
type StateHandler struct {
	s *session.Session
}

func NewStateHandler(s *session.Session) *StateHandler {
	return &StateHandler{s: s}
}

const (
	stateWSWriteWait = 10 * time.Second
	stateWSPongWait  = 60 * time.Second
	stateWSPingEvery = (stateWSPongWait * 9) / 10
)

var stateWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type stateWSInbound struct {
	Type    string `json:"type"`
	Version string `json:"version,omitempty"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	LineEnd int    `json:"lineEnd,omitempty"`
	Key     string `json:"key,omitempty"`
	Value   *bool  `json:"value,omitempty"`
	Query   string `json:"query,omitempty"`
	Site    string `json:"site,omitempty"`
}

type stateWSOutbound struct {
	Type        string                   `json:"type"`
	Progress    *int                     `json:"progress,omitempty"`
	Decompiling *bool                    `json:"decompiling,omitempty"`
	Result      *decompiler.Result       `json:"result,omitempty"`
	State       *state.State             `json:"state,omitempty"`
	Permalink   string                   `json:"permalink,omitempty"`
	Jump        *session.Jump            `json:"jump,omitempty"`
	Usages      *viewerv1.UsagesResponse `json:"usages,omitempty"`
	Enabled     *bool                    `json:"enabled,omitempty"`
	Version     string                   `json:"version,omitempty"`
	Code        string                   `json:"code,omitempty"`
	Message     string                   `json:"message,omitempty"`
}

func (h *StateHandler) HandleStateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := stateWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(stateWSPongWait)); err != nil {
		log.Printf("state ws: set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(stateWSPongWait))
	})

	writeCh := make(chan stateWSOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(stateWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(stateWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(stateWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	pushStateWS(writeCh, stateWSOutbound{Type: "subscribed"})
	h.forwardAll(ctx, writeCh)

	for {
		var in stateWSInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		if out, ok := h.apply(ctx, in); ok {
			pushStateWS(writeCh, out)
		}
	}
}

// forwardAll subscribes the connection to every stream it reports.
func (h *StateHandler) forwardAll(ctx context.Context, writeCh chan stateWSOutbound) {
	progress := func(kind string) func(int) stateWSOutbound {
		return func(v int) stateWSOutbound { return stateWSOutbound{Type: kind, Progress: &v} }
	}
	forward(ctx, writeCh, h.s.Downloading, progress("download"))
	forward(ctx, writeCh, h.s.LeftLoading, progress("left_download"))
	forward(ctx, writeCh, h.s.IndexStatus, progress("index"))
	forward(ctx, writeCh, h.s.Service.IsDecompiling(), func(v bool) stateWSOutbound {
		return stateWSOutbound{Type: "decompiling", Decompiling: &v}
	})
	forward(ctx, writeCh, h.s.Pipeline.Results(), func(res decompiler.Result) stateWSOutbound {
		return stateWSOutbound{Type: "result", Result: &res}
	})
	forward(ctx, writeCh, h.s.Selection.Observable(), func(st state.State) stateWSOutbound {
		return stateWSOutbound{
			Type:      "state",
			State:     &st,
			Permalink: h.s.Selection.Permalink(h.s.Settings.SupportsPermalinking()),
		}
	})
	forward(ctx, writeCh, h.s.Jumps, func(j session.Jump) stateWSOutbound {
		return stateWSOutbound{Type: "jump", Jump: &j}
	})
	forward(ctx, writeCh, h.s.Usages.Results(), func(r usage.Results) stateWSOutbound {
		if r.Err != nil {
			return stateWSOutbound{Type: "error", Code: "unavailable", Message: r.Err.Error()}
		}
		return stateWSOutbound{Type: "usages", Usages: usagesResponse(r.Query, r.Sites)}
	})
	forward(ctx, writeCh, h.s.HideSizes, func(v bool) stateWSOutbound {
		return stateWSOutbound{Type: "hide_sizes", Enabled: &v}
	})
	forward(ctx, writeCh, h.s.Versions.Failures(), func(err error) stateWSOutbound {
		if err == nil {
			return stateWSOutbound{Type: "error", Code: "unavailable"}
		}
		return stateWSOutbound{Type: "error", Code: "unavailable", Message: err.Error()}
	})
}

func forward[T any](ctx context.Context, writeCh chan stateWSOutbound, subject *observable.Subject[T], msg func(T) stateWSOutbound) {
	ch := subject.Subscribe(ctx)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-ch:
				if !ok {
					return
				}
				pushStateWS(writeCh, msg(v))
			}
		}
	}()
}

func (h *StateHandler) apply(ctx context.Context, in stateWSInbound) (stateWSOutbound, bool) {
	invalid := func(msg string) (stateWSOutbound, bool) {
		return stateWSOutbound{Type: "error", Code: "invalid_argument", Message: msg}, true
	}
	msgType := strings.ToLower(strings.TrimSpace(in.Type))
	switch msgType {
	case "":
		return invalid("type is required")
	case "ping":
		return stateWSOutbound{Type: "pong"}, true
	case "select":
		file, err := classFile(in.File)
		if err != nil {
			return invalid(err.Error())
		}
		if v := strings.TrimSpace(in.Version); v != "" {
			if !h.knownVersion(v) {
				return invalid("unknown version: " + v)
			}
			h.s.Versions.Select(v)
			h.s.Selection.SetFile(v, file, in.Line, in.LineEnd)
			return stateWSOutbound{}, false
		}
		h.s.Open(file, in.Line, in.LineEnd)
		return stateWSOutbound{}, false
	case "version":
		v := strings.TrimSpace(in.Version)
		if !h.knownVersion(v) {
			return invalid("unknown version: " + v)
		}
		h.s.Versions.Select(v)
		return stateWSOutbound{Type: "version_ack", Version: v}, true
	case "setting":
		setting, ok := h.s.Settings.Boolean(strings.TrimSpace(in.Key))
		if !ok || in.Value == nil {
			return invalid("unknown setting or missing value")
		}
		if err := setting.Set(*in.Value); err != nil {
			log.Printf("state ws: save setting %s failed: %v", setting.Key(), err)
			return stateWSOutbound{Type: "error", Code: "internal", Message: err.Error()}, true
		}
		return stateWSOutbound{}, false
	case "goto_usage":
		if strings.TrimSpace(in.Query) == "" || strings.TrimSpace(in.Site) == "" {
			return invalid("query and site are required")
		}
		h.s.GoToUsage(usage.Key(in.Query), usage.Site(in.Site))
		return stateWSOutbound{}, false
	case "usages":
		// An empty query clears the results. Query only fails once the
		// connection is gone.
		_ = h.s.Usages.Query(ctx, usage.Key(strings.TrimSpace(in.Query)))
		return stateWSOutbound{}, false
	case "hide_sizes":
		if in.Value == nil {
			return invalid("value is required")
		}
		h.s.HideSizes.Set(*in.Value)
		return stateWSOutbound{}, false
	default:
		return invalid("unsupported type: " + msgType)
	}
}

func (h *StateHandler) knownVersion(v string) bool {
	versions, _ := h.s.Versions.Versions().Value()
	return containsVersion(versions, v)
}

// pushStateWS drops the oldest queued message when the client lags; later
// snapshots supersede earlier ones.
func pushStateWS(writeCh chan stateWSOutbound, out stateWSOutbound) {
	if writeCh == nil {
		return
	}
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
