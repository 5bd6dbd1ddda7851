package vote

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/votingapp/ballot-box/internal/transport/middleware"
	"github.com/votingapp/ballot-box/pkg/ballotbox"
)

const formTemplate = `<!doctype html>
<html>
<head><title>Voting App</title></head>
<body>
<h1>Cast your vote</h1>
<form method="post" action="/vote">
{{- range .Choices}}
  <button name="vote" value="{{.}}">{{title .}}</button>
{{- end}}
</form>
<p><a href="/health">health</a> | <a href="/">home</a></p>
</body>
</html>
`

type healthResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type voteServer struct {
	listenPort int
	queue      ballotbox.Queue
	choices    ballotbox.ChoiceSet

	form     *template.Template
	wg       sync.WaitGroup
	listener net.Listener
}

func New(queue ballotbox.Queue, choices ballotbox.ChoiceSet, listenPort int) ballotbox.Server {
	form := template.Must(template.New("form").Funcs(template.FuncMap{
		"title": titleCase,
	}).Parse(formTemplate))

	return &voteServer{
		queue:      queue,
		choices:    choices,
		listenPort: listenPort,
		form:       form,
	}
}

func (s *voteServer) Start() error {
	var err error

	s.listener, err = net.Listen("tcp", fmt.Sprintf(":%d", s.listenPort))
	if err != nil {
		return err
	}

	started := make(chan struct{})
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		close(started)

		if err := http.Serve(s.listener, s.handler()); err != nil {
			logrus.WithError(err).Info("vote server stopped serving")
		}
	}()
	<-started

	return nil
}

func (s *voteServer) Close() error {
	err := s.listener.Close()
	s.wg.Wait()
	return err
}

func (s *voteServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleForm)
	mux.HandleFunc("/vote", s.handleVote)
	mux.HandleFunc("/health", s.handleHealth)

	return middleware.WithLogging(mux)
}

func (s *voteServer) handleForm(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	err := s.form.Execute(w, struct{ Choices ballotbox.ChoiceSet }{Choices: s.choices})
	if err != nil {
		logrus.WithError(err).Error("failed to render vote form")
	}
}

func (s *voteServer) handleVote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	choice := r.FormValue("vote")
	if !s.choices.Contains(choice) {
		// Unknown choices are discarded without telling the voter apart
		// from an accepted ballot.
		logrus.WithField("vote", choice).Warn("discarding ballot for unknown choice")
		http.Redirect(w, r, "/", http.StatusFound)

		return
	}

	if err := s.queue.Push(choice); err != nil {
		logrus.WithError(err).Error("failed to enqueue ballot")
		http.Error(w, "failed to enqueue ballot", http.StatusInternalServerError)

		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *voteServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := s.queue.Ping(); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		s.writeJSON(w, healthResponse{Status: "error", Detail: err.Error()})

		return
	}

	s.writeJSON(w, healthResponse{Status: "ok"})
}

func (s *voteServer) writeJSON(w http.ResponseWriter, response healthResponse) {
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logrus.WithError(err).Error("failed to encode health response")
	}
}

func titleCase(value string) string {
	if value == "" {
		return value
	}

	return strings.ToUpper(value[:1]) + value[1:]
}
