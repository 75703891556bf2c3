package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pasarchat/internal/adapter/api"
	"pasarchat/internal/adapter/api/middleware"
	"pasarchat/internal/adapter/repository"
	"pasarchat/internal/domain/entity"
	"pasarchat/internal/domain/service"
	"pasarchat/internal/infrastructure/ratelimit"
	"pasarchat/internal/usecase"
	"pasarchat/pkg/errors"
)

// userTokens treats the bearer token as the user id.
type userTokens struct{}

func (userTokens) VerifyToken(_ context.Context, token string) (string, error) {
	if token == "bad" {
		return "", errors.Unauthorized("bad token", nil)
	}
	return token, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type chatAPI struct {
	e     *echo.Echo
	store *repository.MemoryStore
}

func newChatAPI(t *testing.T) *chatAPI {
	t.Helper()

	store := repository.NewMemoryStore()
	sanitizer, err := service.NewMessageSanitizer()
	require.NoError(t, err)
	uc := usecase.NewChatUseCase(store, store, store, store, sanitizer,
		ratelimit.NewSlidingWindow(store, 5*time.Second, 5))

	e := echo.New()
	e.Validator = api.NewValidator()
	auth := middleware.NewAuthMiddleware(userTokens{})
	h := NewChatHandler(uc)

	g := e.Group("/v1/chats", auth.Authenticate)
	g.POST("", h.OpenChat)
	g.GET("", h.GetInbox)
	g.GET("/:id", h.GetChat)
	g.PUT("/:id/read", h.MarkRead)
	g.PUT("/:id/archive", h.SetArchived)
	g.GET("/:id/messages", h.GetMessages)
	g.POST("/:id/messages", h.SendMessage)

	return &chatAPI{e: e, store: store}
}

func (a *chatAPI) do(t *testing.T, method, path, user, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+user)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func (a *chatAPI) openChat(t *testing.T, me, other string) *entity.Chat {
	t.Helper()

	rec, env := a.do(t, http.MethodPost, "/v1/chats", me, fmt.Sprintf(`{"other_user_id":%q}`, other))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var chat entity.Chat
	require.NoError(t, json.Unmarshal(env.Data, &chat))
	return &chat
}

func TestOpenChat(t *testing.T) {
	a := newChatAPI(t)

	chat := a.openChat(t, "alice", "bob")
	assert.Equal(t, "alice", chat.BuyerID)
	assert.Equal(t, "bob", chat.SellerID)
	assert.Nil(t, chat.ListingID)

	again := a.openChat(t, "alice", "bob")
	assert.Equal(t, chat.ID, again.ID)

	a.store.PutListing("l1", "bob")
	rec, env := a.do(t, http.MethodPost, "/v1/chats", "bob", `{"other_user_id":"alice","listing_id":"l1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var listingChat entity.Chat
	require.NoError(t, json.Unmarshal(env.Data, &listingChat))
	assert.Equal(t, "alice", listingChat.BuyerID)
	assert.Equal(t, "bob", listingChat.SellerID)
	assert.NotEqual(t, chat.ID, listingChat.ID)
}

func TestOpenChatErrors(t *testing.T) {
	a := newChatAPI(t)

	tests := []struct {
		name   string
		user   string
		body   string
		status int
		code   string
	}{
		{"no token", "", `{"other_user_id":"bob"}`, http.StatusUnauthorized, errors.CodeUnauthorized},
		{"bad token", "bad", `{"other_user_id":"bob"}`, http.StatusUnauthorized, errors.CodeUnauthorized},
		{"missing other user", "alice", `{}`, http.StatusBadRequest, errors.CodeValidation},
		{"blank other user", "alice", `{"other_user_id":"  "}`, http.StatusBadRequest, errors.CodeValidation},
		{"self chat", "alice", `{"other_user_id":"alice"}`, http.StatusBadRequest, errors.CodeValidation},
		{"listing owned by nobody", "alice", `{"other_user_id":"bob","listing_id":"ghost"}`, http.StatusBadRequest, errors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := a.do(t, http.MethodPost, "/v1/chats", tt.user, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestMessagesFlow(t *testing.T) {
	a := newChatAPI(t)
	chat := a.openChat(t, "alice", "bob")
	base := "/v1/chats/" + chat.ID

	rec, env := a.do(t, http.MethodPost, base+"/messages", "alice", `{"content":"  <b>hello</b> there "}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sent entity.Message
	require.NoError(t, json.Unmarshal(env.Data, &sent))
	assert.Equal(t, "hello there", sent.Content)
	assert.Equal(t, "bob", sent.ReceiverID)

	time.Sleep(time.Millisecond)
	rec, _ = a.do(t, http.MethodPost, base+"/messages", "alice", `{"content":"second"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env = a.do(t, http.MethodGet, base+"/messages?limit=1", "bob", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Items      []entity.Message `json:"items"`
		Limit      int              `json:"limit"`
		NextBefore *time.Time       `json:"next_before"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "second", page.Items[0].Content)
	require.NotNil(t, page.NextBefore)

	rec, env = a.do(t, http.MethodGet, base+"/messages?limit=1&before="+page.NextBefore.Format(time.RFC3339Nano), "bob", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "hello there", page.Items[0].Content)

	rec, env = a.do(t, http.MethodPut, base+"/read", "bob", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var read markReadResponse
	require.NoError(t, json.Unmarshal(env.Data, &read))
	assert.Equal(t, 2, read.Count)

	rec, env = a.do(t, http.MethodGet, "/v1/chats", "bob", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var inbox struct {
		Items []entity.Chat `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &inbox))
	require.Len(t, inbox.Items, 1)
	assert.NotNil(t, inbox.Items[0].LastMessageAt)
}

func TestMessagesMembership(t *testing.T) {
	a := newChatAPI(t)
	chat := a.openChat(t, "alice", "bob")
	base := "/v1/chats/" + chat.ID

	for _, req := range []struct{ method, path, body string }{
		{http.MethodGet, base, ""},
		{http.MethodGet, base + "/messages", ""},
		{http.MethodPost, base + "/messages", `{"content":"hi"}`},
		{http.MethodPut, base + "/read", ""},
		{http.MethodPut, base + "/archive", `{"archived":true}`},
	} {
		rec, env := a.do(t, req.method, req.path, "mallory", req.body)
		assert.Equal(t, http.StatusForbidden, rec.Code, req.method+" "+req.path)
		require.NotNil(t, env.Error)
		assert.Equal(t, errors.CodeForbidden, env.Error.Code)
	}

	rec, _ := a.do(t, http.MethodGet, "/v1/chats/missing/messages", "alice", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env := a.do(t, http.MethodGet, base+"/messages?before=yesterday", "alice", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.CodeValidation, env.Error.Code)
}

func TestSendMessageValidation(t *testing.T) {
	a := newChatAPI(t)
	chat := a.openChat(t, "alice", "bob")
	path := "/v1/chats/" + chat.ID + "/messages"

	rec, env := a.do(t, http.MethodPost, path, "alice", `{"content":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "content is required", env.Error.Message)

	rec, _ = a.do(t, http.MethodPost, path, "alice", fmt.Sprintf(`{"content":%q}`, strings.Repeat("a", entity.MaxMessageLength+1)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = a.do(t, http.MethodPost, path, "alice", `{"content":"<script>x</script>"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendMessageRateLimited(t *testing.T) {
	a := newChatAPI(t)
	chat := a.openChat(t, "alice", "bob")
	path := "/v1/chats/" + chat.ID + "/messages"

	for i := 0; i < 5; i++ {
		rec, _ := a.do(t, http.MethodPost, path, "alice", `{"content":"spam"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, env := a.do(t, http.MethodPost, path, "alice", `{"content":"spam"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, errors.CodeTooManyRequests, env.Error.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestSetArchived(t *testing.T) {
	a := newChatAPI(t)
	chat := a.openChat(t, "alice", "bob")

	rec, env := a.do(t, http.MethodPut, "/v1/chats/"+chat.ID+"/archive", "bob", `{"archived":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated entity.Chat
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.True(t, updated.SellerArchived)
	assert.False(t, updated.BuyerArchived)

	rec, env = a.do(t, http.MethodGet, "/v1/chats/"+chat.ID, "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.True(t, updated.SellerArchived)
}
