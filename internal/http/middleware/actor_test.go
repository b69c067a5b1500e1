package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

const actorUUID = "7a263402-39b1-4e8f-bdcd-84a0f2c4e1d0"

func newActorRouter() (*gin.Engine, *string) {
	gin.SetMode(gin.TestMode)
	var seen string
	r := gin.New()
	r.Use(ActorContext())
	r.GET("/probe", func(c *gin.Context) {
		seen = ActorFrom(c)
		c.Status(http.StatusOK)
	})
	return r, &seen
}

func TestActorContext_ValidHeader_Stored(t *testing.T) {
	r, seen := newActorRouter()

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(HeaderActingUser, actorUUID)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if *seen != actorUUID {
		t.Fatalf("ActorFrom = %q", *seen)
	}
}

func TestActorContext_MissingHeader_EmptyActor(t *testing.T) {
	r, seen := newActorRouter()

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("reads without an actor must pass: %d", w.Code)
	}
	if *seen != "" {
		t.Fatalf("ActorFrom = %q, want empty", *seen)
	}
}

func TestActorContext_MalformedHeader_Rejected(t *testing.T) {
	r, _ := newActorRouter()

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(HeaderActingUser, "not-a-uuid")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
}

func TestActorContext_WhitespaceHeader_TreatedAsAbsent(t *testing.T) {
	r, seen := newActorRouter()

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(HeaderActingUser, "   ")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || *seen != "" {
		t.Fatalf("blank header: status=%d actor=%q", w.Code, *seen)
	}
}

func TestActorFrom_WrongType_Empty(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set(actorIDKey, 42)
	if got := ActorFrom(c); got != "" {
		t.Fatalf("ActorFrom = %q, want empty", got)
	}
}
