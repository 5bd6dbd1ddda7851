package main

import (
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-redis/redis"
	_ "github.com/lib/pq"
	"github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	amqpQueue "github.com/votingapp/ballot-box/internal/queue/amqp"
	redisQueue "github.com/votingapp/ballot-box/internal/queue/redis"
	"github.com/votingapp/ballot-box/internal/tally/sqlstore"
	"github.com/votingapp/ballot-box/pkg/ballotbox"
)

func loadConfigOrPanic(cmd *cobra.Command) *Config {
	config, err := LoadConfig(cmd)
	if err != nil {
		log.WithError(err).Panic("Failed to load configurations")
	}
	return config
}

func parseChoicesOrPanic(config *Config) ballotbox.ChoiceSet {
	var choices ballotbox.ChoiceSet

	for _, choice := range strings.Split(config.Choices, ",") {
		choice = strings.TrimSpace(choice)
		if choice != "" {
			choices = append(choices, choice)
		}
	}

	if len(choices) == 0 {
		log.Panicf("no choices configured: %v", config.Choices)
	}

	return choices
}

func connectToQueueOrPanic(config *Config) ballotbox.Queue {
	switch config.QueueBackend {
	case "redis":
		return connectToRedisQueue(config)

	case "amqp":
		return connectToAmqpQueueOrPanic(config)

	default:
		log.Panicf("unknown queue backend: %v", config.QueueBackend)
		return nil
	}
}

func connectToRedisQueue(config *Config) ballotbox.Queue {
	client := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%d", config.RedisHost, config.RedisPort),
	})

	return redisQueue.New(client, config.QueueName)
}

func connectToAmqpQueueOrPanic(config *Config) ballotbox.Queue {
	conn, err := amqp091.Dial(config.AmqpURL)
	if err != nil {
		panicWithError(err, "failed to connect to rabbitmq")
	}

	queue, err := amqpQueue.New(conn, config.QueueName)
	if err != nil {
		panicWithError(err, "failed to set up rabbitmq queue")
	}

	return queue
}

func openTallyStoreOrPanic(config *Config) ballotbox.TallyStore {
	var db *sql.DB
	var err error

	switch config.DBDriver {
	case "postgres":
		db, err = sql.Open("postgres", postgresDSN(config))

	case "sqlite":
		db, err = sql.Open("sqlite", config.SqlitePath)

	default:
		log.Panicf("unknown db driver: %v", config.DBDriver)
	}

	if err != nil {
		panicWithError(err, "failed to open tally database")
	}

	if config.DBDriver == "sqlite" {
		// sqlite allows a single writer.
		db.SetMaxOpenConns(1)
	}

	return sqlstore.New(db)
}

func postgresDSN(config *Config) string {
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s sslmode=disable",
		config.DBHost, config.DBPort, config.DBName, config.DBUser)

	if password := resolveDBPassword(config); password != "" {
		dsn = fmt.Sprintf("%s password=%s", dsn, password)
	}

	return dsn
}

// resolveDBPassword falls back to the password file only when no password is
// set directly. An unreadable file degrades to no password rather than
// aborting startup.
func resolveDBPassword(config *Config) string {
	if config.DBPassword != "" {
		return config.DBPassword
	}

	if config.DBPasswordFile == "" {
		return ""
	}

	raw, err := os.ReadFile(config.DBPasswordFile)
	if err != nil {
		log.WithError(err).Warn("failed to read database password file")
		return ""
	}

	return strings.TrimSpace(string(raw))
}

func startServerOrPanic(server ballotbox.Server) {
	err := server.Start()
	if err != nil {
		panicWithError(err, "failed to start server")
	}
}

func shutdownServerOrPanic(server ballotbox.Server) {
	if err := server.Close(); err != nil {
		panicWithError(err, "failed to close server")
	}
}

func startWorkerOrPanic(worker ballotbox.Worker) {
	err := worker.Start()
	if err != nil {
		panicWithError(err, "failed to start worker")
	}
}

func shutdownWorkerOrPanic(worker ballotbox.Worker) {
	if err := worker.Close(); err != nil {
		panicWithError(err, "failed to close worker")
	}
}

func shutdownQueueOrPanic(queue ballotbox.Queue) {
	if err := queue.Close(); err != nil {
		panicWithError(err, "failed to close queue")
	}
}

func shutdownStoreOrPanic(store ballotbox.TallyStore) {
	if err := store.Close(); err != nil {
		panicWithError(err, "failed to close tally store")
	}
}

func waitForTermination() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
}

func panicWithError(err error, format string, args ...interface{}) {
	log.WithError(err).Panicf(format, args...)
}
