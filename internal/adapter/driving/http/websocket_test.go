package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"

	"github.com/quietbit/parley/internal/config"
	"github.com/quietbit/parley/internal/core/domain"
	"github.com/quietbit/parley/internal/core/service"
)

func newTestServer(t *testing.T, cfg config.Config) *httptest.Server {
	t.Helper()
	registry := service.NewRegistry()
	directory := service.NewDirectory()
	router := service.NewRouter(registry, directory)
	supervisor := service.NewSupervisor(registry, router)

	srv := httptest.NewServer(NewHandler(cfg, supervisor).NewRouter())
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) domain.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env domain.Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env
}

func expectKind(t *testing.T, conn *websocket.Conn, kind domain.Kind) domain.Envelope {
	t.Helper()
	env := readEnvelope(t, conn)
	if env.Kind != kind {
		t.Fatalf("received %q envelope, want %q: %+v", env.Kind, kind, env)
	}
	return env
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, config.Default())

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Fatalf("body = %q", body)
	}
}

func TestWebSocketCallFlow(t *testing.T) {
	srv := newTestServer(t, config.Default())

	connA := dial(t, srv)
	idA := expectKind(t, connA, domain.KindHello).ID
	if idA == "" {
		t.Fatal("hello carried no identity")
	}

	if err := connA.WriteJSON(domain.Envelope{Kind: domain.KindJoin, Room: "r1"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	roster := expectKind(t, connA, domain.KindRoster)
	if len(roster.Members) != 1 || roster.Members[0] != idA {
		t.Fatalf("roster = %v, want [%s]", roster.Members, idA)
	}

	connB := dial(t, srv)
	idB := expectKind(t, connB, domain.KindHello).ID

	if err := connB.WriteJSON(domain.Envelope{Kind: domain.KindJoin, Room: "r1"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	for name, conn := range map[string]*websocket.Conn{"A": connA, "B": connB} {
		roster := expectKind(t, conn, domain.KindRoster)
		if len(roster.Members) != 2 || roster.Members[0] != idA || roster.Members[1] != idB {
			t.Fatalf("%s roster = %v, want [%s %s]", name, roster.Members, idA, idB)
		}
	}

	// Offer/answer, targeted by identity.
	offerSDP := json.RawMessage(`{"type":"offer","sdp":"X"}`)
	if err := connA.WriteJSON(domain.Envelope{Kind: domain.KindOffer, To: idB, SDP: offerSDP}); err != nil {
		t.Fatalf("write: %v", err)
	}
	offer := expectKind(t, connB, domain.KindOffer)
	if offer.From != idA || string(offer.SDP) != string(offerSDP) {
		t.Fatalf("offer = %+v", offer)
	}

	answerSDP := json.RawMessage(`{"type":"answer","sdp":"Y"}`)
	if err := connB.WriteJSON(domain.Envelope{Kind: domain.KindAnswer, To: idA, SDP: answerSDP}); err != nil {
		t.Fatalf("write: %v", err)
	}
	answer := expectKind(t, connA, domain.KindAnswer)
	if answer.From != idB || string(answer.SDP) != string(answerSDP) {
		t.Fatalf("answer = %+v", answer)
	}

	// Candidate addressed to the room reaches everyone but the sender.
	mid := "0"
	idx := uint16(0)
	err := connB.WriteJSON(domain.Envelope{
		Kind:      domain.KindCandidate,
		Room:      "r1",
		Candidate: &webrtc.ICECandidateInit{Candidate: "candidate:1 1 udp 1 192.0.2.1 1 typ host", SDPMid: &mid, SDPMLineIndex: &idx},
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	cand := expectKind(t, connA, domain.KindCandidate)
	if cand.From != idB || cand.Candidate == nil || cand.Candidate.Candidate == "" {
		t.Fatalf("candidate = %+v", cand)
	}

	// B hangs up: A's next roster no longer lists B.
	connB.Close()
	roster = expectKind(t, connA, domain.KindRoster)
	if len(roster.Members) != 1 || roster.Members[0] != idA {
		t.Fatalf("roster after hangup = %v, want [%s]", roster.Members, idA)
	}
}

func TestMalformedFramesAreSurvivable(t *testing.T) {
	srv := newTestServer(t, config.Default())

	conn := dial(t, srv)
	expectKind(t, conn, domain.KindHello)

	// Not JSON at all.
	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if env := expectKind(t, conn, domain.KindError); env.Code != "malformed_message" {
		t.Fatalf("code = %q", env.Code)
	}

	// Join without a room.
	if err := conn.WriteJSON(domain.Envelope{Kind: domain.KindJoin}); err != nil {
		t.Fatalf("write: %v", err)
	}
	expectKind(t, conn, domain.KindError)

	// Candidate with a missing sdpMLineIndex.
	if err := conn.WriteJSON(domain.Envelope{
		Kind:      domain.KindCandidate,
		Room:      "r1",
		Candidate: &webrtc.ICECandidateInit{Candidate: "candidate:1"},
	}); err != nil {
		t.Fatalf("write: %v", err)
	}
	expectKind(t, conn, domain.KindError)

	// The connection is not penalized: a valid join still works.
	if err := conn.WriteJSON(domain.Envelope{Kind: domain.KindJoin, Room: "r1"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	expectKind(t, conn, domain.KindRoster)
}

func TestOriginRestriction(t *testing.T) {
	cfg := config.Default()
	cfg.AllowedOrigin = "https://app.example.com"
	srv := newTestServer(t, cfg)

	if _, _, err := websocket.DefaultDialer.Dial(wsURL(srv), http.Header{
		"Origin": []string{"https://evil.example.com"},
	}); err == nil {
		t.Fatal("upgrade succeeded from a disallowed origin")
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), http.Header{
		"Origin": []string{"https://app.example.com"},
	})
	if err != nil {
		t.Fatalf("dial from allowed origin: %v", err)
	}
	defer conn.Close()
	expectKind(t, conn, domain.KindHello)
}

func TestUnresponsivePeerIsDisconnected(t *testing.T) {
	cfg := config.Default()
	cfg.PingInterval = 50 * time.Millisecond
	cfg.PongWait = 150 * time.Millisecond
	srv := newTestServer(t, cfg)

	conn := dial(t, srv)
	// Swallow pings instead of answering them.
	conn.SetPingHandler(func(string) error { return nil })
	expectKind(t, conn, domain.KindHello)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return // server gave up on us, as it should
		}
	}
}
