package ginserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appchat "hostal/internal/app/chat"
	"hostal/internal/app/dto"
	domainuser "hostal/internal/domain/user"
	"hostal/internal/infra/config"
	"hostal/internal/infra/directory"
	"hostal/internal/infra/obs"
	"hostal/internal/infra/storage/memory"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	users := memory.NewUserRepository()
	for i, name := range []string{"Ana Torres", "Luis Romero", "Marta Vidal"} {
		u, err := domainuser.NewUser(domainuser.CreateParams{
			ID:    domainuser.ID(fmt.Sprintf("u%d", i+1)),
			Email: fmt.Sprintf("user%d@example.com", i+1),
			Name:  name,
		})
		require.NoError(t, err)
		require.NoError(t, users.Save(context.Background(), u))
	}

	svc := &appchat.Service{
		UoW:       memory.NewFactory(),
		Directory: directory.UserDirectory{Users: users},
	}
	server := NewServer(config.Config{Env: "test", HTTPAddr: ":0"}, obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Chat: ChatHandler{Service: svc},
	})
	return server.Handler
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) (*httptest.ResponseRecorder, []byte) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, rec.Body.Bytes()
}

func createConversation(t *testing.T, handler http.Handler, u1, u2 string) dto.Conversation {
	t.Helper()
	rec, body := doJSON(t, handler, http.MethodPost, "/api/chats",
		fmt.Sprintf(`{"usuario1Id":%q,"usuario2Id":%q}`, u1, u2))
	require.Equal(t, http.StatusOK, rec.Code)
	var conversation dto.Conversation
	require.NoError(t, json.Unmarshal(body, &conversation))
	return conversation
}

func Test_POST_Chats_Creates_And_Returns_Existing(t *testing.T) {
	req := require.New(t)
	handler := newTestServer(t)

	first := createConversation(t, handler, "u1", "u2")
	req.True(first.Activo)
	req.Equal("Ana Torres", first.NombreUsuario1)
	req.Equal("Luis Romero", first.NombreUsuario2)
	req.Nil(first.FechaUltimoMensaje)

	second := createConversation(t, handler, "u2", "u1")
	req.Equal(first.ID, second.ID)
}

func Test_POST_Chats_Validation_Errors(t *testing.T) {
	req := require.New(t)
	handler := newTestServer(t)

	rec, _ := doJSON(t, handler, http.MethodPost, "/api/chats", `{"usuario1Id":"u1","usuario2Id":"u1"}`)
	req.Equal(http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, handler, http.MethodPost, "/api/chats", `{"usuario1Id":"u1","usuario2Id":"ghost"}`)
	req.Equal(http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, handler, http.MethodPost, "/api/chats", `not json`)
	req.Equal(http.StatusBadRequest, rec.Code)
}

func Test_Send_And_List_Messages(t *testing.T) {
	req := require.New(t)
	handler := newTestServer(t)
	conversation := createConversation(t, handler, "u1", "u2")

	for i := 1; i <= 3; i++ {
		rec, body := doJSON(t, handler, http.MethodPost, "/api/chats/"+conversation.ID+"/mensajes",
			fmt.Sprintf(`{"remitenteId":"u1","contenido":"mensaje %d"}`, i))
		req.Equal(http.StatusOK, rec.Code)
		var message dto.Message
		req.NoError(json.Unmarshal(body, &message))
		req.Equal(conversation.ID, message.ChatID)
		req.Equal("Ana Torres", message.NombreRemitente)
		req.False(message.Leido)
	}

	rec, body := doJSON(t, handler, http.MethodGet, "/api/chats/"+conversation.ID+"/mensajes?page=0&size=2", "")
	req.Equal(http.StatusOK, rec.Code)
	var page dto.MessagePage
	req.NoError(json.Unmarshal(body, &page))
	req.Len(page.Items, 2)
	req.Equal("mensaje 3", page.Items[0].Contenido)
	req.Equal("mensaje 2", page.Items[1].Contenido)
	req.Equal(2, page.Size)

	// Conversation summary reflects the latest message.
	rec, body = doJSON(t, handler, http.MethodGet, "/api/chats/"+conversation.ID, "")
	req.Equal(http.StatusOK, rec.Code)
	var reloaded dto.Conversation
	req.NoError(json.Unmarshal(body, &reloaded))
	req.Equal("mensaje 3", reloaded.UltimoMensaje)
	req.NotNil(reloaded.FechaUltimoMensaje)
}

func Test_SendMessage_Error_Mapping(t *testing.T) {
	req := require.New(t)
	handler := newTestServer(t)
	conversation := createConversation(t, handler, "u1", "u2")

	// Outsider.
	rec, _ := doJSON(t, handler, http.MethodPost, "/api/chats/"+conversation.ID+"/mensajes",
		`{"remitenteId":"u3","contenido":"hola"}`)
	req.Equal(http.StatusBadRequest, rec.Code)

	// Empty content.
	rec, _ = doJSON(t, handler, http.MethodPost, "/api/chats/"+conversation.ID+"/mensajes",
		`{"remitenteId":"u1","contenido":"   "}`)
	req.Equal(http.StatusBadRequest, rec.Code)

	// Over the limit.
	long := strings.Repeat("x", 1001)
	rec, _ = doJSON(t, handler, http.MethodPost, "/api/chats/"+conversation.ID+"/mensajes",
		fmt.Sprintf(`{"remitenteId":"u1","contenido":%q}`, long))
	req.Equal(http.StatusBadRequest, rec.Code)

	// Unknown chat.
	rec, _ = doJSON(t, handler, http.MethodPost, "/api/chats/nope/mensajes",
		`{"remitenteId":"u1","contenido":"hola"}`)
	req.Equal(http.StatusBadRequest, rec.Code)
}

func Test_List_Conversations_For_User(t *testing.T) {
	req := require.New(t)
	handler := newTestServer(t)
	withU2 := createConversation(t, handler, "u1", "u2")
	createConversation(t, handler, "u1", "u3")

	rec, _ := doJSON(t, handler, http.MethodPost, "/api/chats/"+withU2.ID+"/mensajes",
		`{"remitenteId":"u2","contenido":"hola"}`)
	req.Equal(http.StatusOK, rec.Code)

	rec, body := doJSON(t, handler, http.MethodGet, "/api/chats/usuario/u1", "")
	req.Equal(http.StatusOK, rec.Code)
	var listed []dto.Conversation
	req.NoError(json.Unmarshal(body, &listed))
	req.Len(listed, 2)
	req.Equal(withU2.ID, listed[0].ID)

	rec, body = doJSON(t, handler, http.MethodGet, "/api/chats/usuario/u3", "")
	req.Equal(http.StatusOK, rec.Code)
	listed = nil
	req.NoError(json.Unmarshal(body, &listed))
	req.Len(listed, 1)
}

func Test_Read_Flow_Over_HTTP(t *testing.T) {
	req := require.New(t)
	handler := newTestServer(t)
	conversation := createConversation(t, handler, "u1", "u2")

	_, body := doJSON(t, handler, http.MethodPost, "/api/chats/"+conversation.ID+"/mensajes",
		`{"remitenteId":"u2","contenido":"hola"}`)
	var sent dto.Message
	req.NoError(json.Unmarshal(body, &sent))

	rec, body := doJSON(t, handler, http.MethodGet, "/api/chats/mensajes/no-leidos/"+conversation.ID+"/usuario/u1", "")
	req.Equal(http.StatusOK, rec.Code)
	var unread []dto.Message
	req.NoError(json.Unmarshal(body, &unread))
	req.Len(unread, 1)

	rec, body = doJSON(t, handler, http.MethodPut, "/api/chats/mensajes/"+sent.ID+"/leido", "")
	req.Equal(http.StatusOK, rec.Code)
	var read dto.Message
	req.NoError(json.Unmarshal(body, &read))
	req.True(read.Leido)
	req.NotNil(read.FechaLeido)

	rec, body = doJSON(t, handler, http.MethodGet, "/api/chats/mensajes/no-leidos/"+conversation.ID+"/usuario/u1", "")
	req.Equal(http.StatusOK, rec.Code)
	unread = nil
	req.NoError(json.Unmarshal(body, &unread))
	req.Empty(unread)

	rec, _ = doJSON(t, handler, http.MethodPut, "/api/chats/mensajes/missing/leido", "")
	req.Equal(http.StatusNotFound, rec.Code)
}

func Test_Delete_Message_And_Refresh_Activity(t *testing.T) {
	req := require.New(t)
	handler := newTestServer(t)
	conversation := createConversation(t, handler, "u1", "u2")

	_, body := doJSON(t, handler, http.MethodPost, "/api/chats/"+conversation.ID+"/mensajes",
		`{"remitenteId":"u1","contenido":"hola"}`)
	var sent dto.Message
	req.NoError(json.Unmarshal(body, &sent))

	rec, _ := doJSON(t, handler, http.MethodDelete, "/api/chats/mensajes/"+sent.ID, "")
	req.Equal(http.StatusOK, rec.Code)

	rec, _ = doJSON(t, handler, http.MethodDelete, "/api/chats/mensajes/"+sent.ID, "")
	req.Equal(http.StatusNotFound, rec.Code)

	rec, body = doJSON(t, handler, http.MethodPut, "/api/chats/"+conversation.ID+"/actividad", "")
	req.Equal(http.StatusOK, rec.Code)
	var bumped dto.Conversation
	req.NoError(json.Unmarshal(body, &bumped))
	req.NotNil(bumped.FechaUltimoMensaje)
	req.True(bumped.FechaUltimoMensaje.After(sent.FechaEnvio.Add(-time.Second)))

	rec, _ = doJSON(t, handler, http.MethodPut, "/api/chats/missing/actividad", "")
	req.Equal(http.StatusNotFound, rec.Code)

	rec, _ = doJSON(t, handler, http.MethodGet, "/api/chats/missing", "")
	req.Equal(http.StatusNotFound, rec.Code)
}
