package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
)

type scriptedHandler struct {
	proceed bool
	err     error
	calls   int
}

func (h *scriptedHandler) Handle(_ context.Context, _ *api.Update, _ *api.Chat, _ *api.User) (bool, error) {
	h.calls++
	return h.proceed, h.err
}

func freshUpdate() *api.Update {
	return &api.Update{
		Message: &api.Message{
			Date: int(time.Now().Unix()),
			Chat: api.Chat{ID: 1},
			From: &api.User{ID: 2},
		},
	}
}

func TestProcessRunsHandlerChain(t *testing.T) {
	t.Parallel()

	first := &scriptedHandler{proceed: true}
	second := &scriptedHandler{proceed: true}
	up := &UpdateProcessor{updateHandlers: []Handler{first, second}}

	if err := up.Process(context.Background(), freshUpdate()); err != nil {
		t.Fatalf("process: %v", err)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Fatalf("calls = %d/%d, want 1/1", first.calls, second.calls)
	}
}

func TestProcessStopsWhenHandlerClaimsUpdate(t *testing.T) {
	t.Parallel()

	first := &scriptedHandler{proceed: false}
	second := &scriptedHandler{proceed: true}
	up := &UpdateProcessor{updateHandlers: []Handler{first, second}}

	if err := up.Process(context.Background(), freshUpdate()); err != nil {
		t.Fatalf("process: %v", err)
	}
	if second.calls != 0 {
		t.Fatalf("second handler ran %d times after the chain stopped", second.calls)
	}
}

func TestProcessPropagatesHandlerError(t *testing.T) {
	t.Parallel()

	handlerErr := errors.New("handler broke")
	first := &scriptedHandler{proceed: true, err: handlerErr}
	second := &scriptedHandler{proceed: true}
	up := &UpdateProcessor{updateHandlers: []Handler{first, second}}

	err := up.Process(context.Background(), freshUpdate())
	if !errors.Is(err, handlerErr) {
		t.Fatalf("error = %v, want wrapped handler error", err)
	}
	if second.calls != 0 {
		t.Fatalf("chain continued past a failing handler")
	}
}

func TestProcessSkipsStaleUpdates(t *testing.T) {
	t.Parallel()

	handler := &scriptedHandler{proceed: true}
	up := &UpdateProcessor{updateHandlers: []Handler{handler}}

	stale := &api.Update{
		Message: &api.Message{
			Date: int(time.Now().Add(-UpdateTimeout - time.Minute).Unix()),
			Chat: api.Chat{ID: 1},
			From: &api.User{ID: 2},
		},
	}
	if err := up.Process(context.Background(), stale); err != nil {
		t.Fatalf("process stale: %v", err)
	}
	if handler.calls != 0 {
		t.Fatalf("stale update reached the handlers")
	}
}

func TestProcessRejectsNilUpdate(t *testing.T) {
	t.Parallel()

	up := &UpdateProcessor{}
	if err := up.Process(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil update")
	}
}

func TestGetUN(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name string
		user *api.User
		want string
	}{
		{"nil user", nil, ""},
		{"username wins", &api.User{ID: 1, UserName: "spammer", FirstName: "Ivan"}, "@spammer"},
		{"full name", &api.User{ID: 1, FirstName: "Ivan", LastName: "Petrov"}, "Ivan Petrov"},
		{"first name only", &api.User{ID: 1, FirstName: "Ivan"}, "Ivan"},
		{"id fallback", &api.User{ID: 42}, "id42"},
	} {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := GetUN(tt.user); got != tt.want {
				t.Fatalf("GetUN = %q, want %q", got, tt.want)
			}
		})
	}
}
