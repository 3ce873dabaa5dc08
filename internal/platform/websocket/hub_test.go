package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carehospital/portal/internal/platform/events"
)

func newClient(topics ...string) *Client {
	return &Client{ID: uuid.NewString(), Topics: topics, Send: make(chan []byte, 4)}
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newClient("patient:1", StaffTopic)

	hub.Register(client)
	if hub.ClientCount() != 1 || hub.TopicCount("patient:1") != 1 || hub.TopicCount(StaffTopic) != 1 {
		t.Fatalf("unexpected counts after register")
	}

	hub.Unregister(client)
	hub.Unregister(client)
	if hub.ClientCount() != 0 || hub.TopicCount("patient:1") != 0 {
		t.Fatalf("expected hub to be empty after unregister")
	}
	if _, open := <-client.Send; open {
		t.Error("expected Send channel to be closed")
	}
}

func TestHub_HandleEventRoutesToPatientAndStaff(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	patientID := uuid.New()

	own := newClient(PatientTopic(patientID))
	other := newClient(PatientTopic(uuid.New()))
	staff := newClient(StaffTopic)
	for _, c := range []*Client{own, other, staff} {
		hub.Register(c)
	}

	subject := uuid.New()
	hub.HandleEvent(context.Background(), events.Event{
		Type:      events.CheckedIn,
		PatientID: patientID,
		SubjectID: subject,
	})

	for name, c := range map[string]*Client{"own": own, "staff": staff} {
		select {
		case raw := <-c.Send:
			var msg Message
			if err := json.Unmarshal(raw, &msg); err != nil {
				t.Fatal(err)
			}
			if msg.Type != events.CheckedIn || msg.SubjectID != subject {
				t.Errorf("%s: unexpected message %+v", name, msg)
			}
		default:
			t.Errorf("%s: expected a message", name)
		}
	}

	select {
	case <-other.Send:
		t.Error("another patient must not receive the event")
	default:
	}
}

func TestHub_FullBufferDoesNotBlock(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	c := &Client{ID: "slow", Topics: []string{StaffTopic}, Send: make(chan []byte, 1)}
	hub.Register(c)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			hub.Broadcast(StaffTopic, Message{Type: events.AppointmentBooked})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a slow client")
	}
}

func TestHandler_RejectsUnauthenticated(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	h := NewHandler(hub, func(echo.Context) (Subscription, bool) { return Subscription{}, false }, nil)

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/live", nil), httptest.NewRecorder())
	err := h.Connect(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestHandler_UpgradeAndReceive(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	patientID := uuid.New()
	sessionID := uuid.NewString()
	h := NewHandler(hub, func(echo.Context) (Subscription, bool) {
		return Subscription{SessionID: sessionID, Topics: []string{PatientTopic(patientID)}}, true
	}, nil)

	e := echo.New()
	h.RegisterRoutes(e.Group(""))
	server := httptest.NewServer(e)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/live"
	conn, resp, err := gorillawebsocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}

	deadline := time.Now().Add(time.Second)
	for hub.TopicCount(PatientTopic(patientID)) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was not registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.HandleEvent(context.Background(), events.Event{Type: events.AppointmentBooked, PatientID: patientID})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != events.AppointmentBooked {
		t.Errorf("expected appointment.booked, got %s", msg.Type)
	}

	// ending the session closes the socket
	if n := hub.DropSession(sessionID); n != 1 {
		t.Fatalf("expected 1 client dropped, got %d", n)
	}
	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected the connection to be closed after the session ended")
	}
}

func TestHub_DropSession(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	patientID := uuid.New()
	ended := &Client{ID: "a", SessionID: "s1", Topics: []string{PatientTopic(patientID)}, Send: make(chan []byte, 4)}
	sameSession := &Client{ID: "b", SessionID: "s1", Topics: []string{PatientTopic(patientID)}, Send: make(chan []byte, 4)}
	other := &Client{ID: "c", SessionID: "s2", Topics: []string{PatientTopic(patientID)}, Send: make(chan []byte, 4)}
	for _, c := range []*Client{ended, sameSession, other} {
		hub.Register(c)
	}

	if n := hub.DropSession("s1"); n != 2 {
		t.Fatalf("expected 2 clients dropped, got %d", n)
	}
	if n := hub.DropSession("s1"); n != 0 {
		t.Errorf("expected a second drop to be a no-op, got %d", n)
	}
	if hub.ClientCount() != 1 || hub.TopicCount(PatientTopic(patientID)) != 1 {
		t.Errorf("expected only the other session's client, got %d clients", hub.ClientCount())
	}
	if _, open := <-ended.Send; open {
		t.Error("expected the dropped client's channel to be closed")
	}

	hub.HandleEvent(context.Background(), events.Event{Type: events.CheckedIn, PatientID: patientID})
	select {
	case <-other.Send:
	default:
		t.Error("expected the remaining session to keep receiving events")
	}

	// unregistering a dropped client again is safe
	hub.Unregister(sameSession)
}
