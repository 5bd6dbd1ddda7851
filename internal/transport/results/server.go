package results

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/votingapp/ballot-box/internal/hub"
	"github.com/votingapp/ballot-box/internal/transport/middleware"
	"github.com/votingapp/ballot-box/pkg/ballotbox"
)

const pageTemplate = `<!doctype html>
<html>
<head><title>Voting Results</title></head>
<body>
<h1>Results</h1>
<table>
{{- range .Rows}}
  <tr><td>{{title .Choice}}</td><td id="count-{{.Choice}}">{{.Count}}</td></tr>
{{- end}}
</table>
<p><a href="/results.json">json</a> | <a href="/health">health</a></p>
<script>
(function() {
  var socket = new WebSocket("ws://" + window.location.host + "/ws");
  socket.onmessage = function(event) {
    var counts = JSON.parse(event.data);
    Object.keys(counts).forEach(function(choice) {
      var cell = document.getElementById("count-" + choice);
      if (cell) { cell.textContent = counts[choice]; }
    });
  };
})();
</script>
</body>
</html>
`

type resultRow struct {
	Choice string
	Count  int64
}

type healthResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type resultsServer struct {
	listenPort   int
	store        ballotbox.TallyStore
	choices      ballotbox.ChoiceSet
	pollInterval time.Duration

	hub      hub.Hub
	upgrader websocket.Upgrader
	page     *template.Template

	listener net.Listener
	closed   chan struct{}
	mutex    sync.Mutex
	wg       sync.WaitGroup
}

type Option func(s *resultsServer)

func New(store ballotbox.TallyStore,
	choices ballotbox.ChoiceSet,
	listenPort int,
	options ...Option) ballotbox.Server {

	page := template.Must(template.New("results").Funcs(template.FuncMap{
		"title": titleCase,
	}).Parse(pageTemplate))

	result := &resultsServer{
		store:        store,
		choices:      choices,
		listenPort:   listenPort,
		pollInterval: 1 * time.Second,
		hub:          hub.New(),
		page:         page,
		closed:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	for _, option := range options {
		option(result)
	}

	return result
}

func WithPollInterval(interval time.Duration) Option {
	return func(s *resultsServer) {
		s.pollInterval = interval
	}
}

func (s *resultsServer) Start() error {
	var err error

	s.listener, err = net.Listen("tcp", fmt.Sprintf(":%d", s.listenPort))
	if err != nil {
		return err
	}

	serveStarted := make(chan struct{})
	s.wg.Add(1)
	go s.beginServe(serveStarted)
	<-serveStarted

	pollStarted := make(chan struct{})
	s.wg.Add(1)
	go s.beginPoll(pollStarted)
	<-pollStarted

	return nil
}

func (s *resultsServer) Close() error {
	if closed := s.setClosed(); !closed {
		return nil
	}

	lastErr := s.listener.Close()

	s.wg.Wait()

	if err := s.hub.Close(); err != nil {
		if lastErr != nil {
			logrus.WithError(lastErr).Error("unexpected error while closing results server")
		}

		lastErr = err
	}

	return lastErr
}

func (s *resultsServer) beginServe(started chan struct{}) {
	defer s.wg.Done()
	close(started)

	if err := http.Serve(s.listener, s.handler()); err != nil {
		logrus.WithError(err).Info("results server stopped serving")
	}
}

// beginPoll watches the tally and pushes a fresh snapshot to websocket
// clients whenever the serialized counts change between two polls.
func (s *resultsServer) beginPoll(started chan struct{}) {
	defer s.wg.Done()
	close(started)

	var last string

	for {
		select {
		case <-s.closed:
			return

		case <-time.After(s.pollInterval):
			payload, err := s.resultsPayload()
			if err != nil {
				logrus.WithError(err).Error("failed to read tally for broadcast")
				continue
			}

			if string(payload) == last {
				continue
			}

			last = string(payload)
			s.hub.Broadcast(payload)
		}
	}
}

func (s *resultsServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handlePage)
	mux.HandleFunc("/results.json", s.handleResults)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWebsocket)

	return middleware.WithLogging(mux)
}

func (s *resultsServer) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	report, err := s.countsReport()
	if err != nil {
		logrus.WithError(err).Error("failed to read tally")
		http.Error(w, "failed to read tally", http.StatusInternalServerError)

		return
	}

	rows := make([]resultRow, 0, len(s.choices))
	for _, choice := range s.choices {
		rows = append(rows, resultRow{Choice: choice, Count: report[choice]})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := s.page.Execute(w, struct{ Rows []resultRow }{Rows: rows}); err != nil {
		logrus.WithError(err).Error("failed to render results page")
	}
}

func (s *resultsServer) handleResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	report, err := s.countsReport()
	if err != nil {
		logrus.WithError(err).Error("failed to read tally")
		http.Error(w, "failed to read tally", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(report); err != nil {
		logrus.WithError(err).Error("failed to encode results")
	}
}

func (s *resultsServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := s.store.Ping(); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		s.writeJSON(w, healthResponse{Status: "error", Detail: err.Error()})

		return
	}

	s.writeJSON(w, healthResponse{Status: "ok"})
}

func (s *resultsServer) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("failed to upgrade websocket connection")
		return
	}

	// The snapshot is written before registering so the hub stays the only
	// writer on a registered connection.
	if payload, err := s.resultsPayload(); err == nil {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			_ = conn.Close()

			return
		}
	}

	s.hub.Register(conn)
	defer s.hub.Unregister(conn)

	// Drain client frames so the close handshake is noticed. Broadcasts
	// happen through the hub.
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

// countsReport zero-fills every configured choice so a tally without rows
// still reports each choice explicitly.
func (s *resultsServer) countsReport() (map[string]int64, error) {
	counts, err := s.store.Counts()
	if err != nil {
		return nil, err
	}

	report := make(map[string]int64)
	for _, choice := range s.choices {
		report[choice] = 0
	}

	for choice, count := range counts {
		report[choice] = count
	}

	return report, nil
}

func (s *resultsServer) resultsPayload() ([]byte, error) {
	report, err := s.countsReport()
	if err != nil {
		return nil, err
	}

	return json.Marshal(report)
}

func (s *resultsServer) writeJSON(w http.ResponseWriter, response healthResponse) {
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logrus.WithError(err).Error("failed to encode health response")
	}
}

func (s *resultsServer) setClosed() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	select {
	case <-s.closed:
		return false

	default:
		close(s.closed)
		return true
	}
}

func titleCase(value string) string {
	if value == "" {
		return value
	}

	return strings.ToUpper(value[:1]) + value[1:]
}
