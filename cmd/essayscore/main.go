// Package main is the essayscore CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/essayscore/internal/artifact"
	"github.com/hyperjump/essayscore/internal/cli"
	"github.com/hyperjump/essayscore/internal/config"
	"github.com/hyperjump/essayscore/internal/models"
	"github.com/hyperjump/essayscore/internal/server"
	"github.com/hyperjump/essayscore/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/essayscore/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path, then .env and environment overrides.
// When path is the default, config.yaml in the current directory wins if it
// exists; when neither exists the built-in defaults are used, so a container
// can be configured from the environment alone.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			local := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(local); err == nil {
				path = local
			}
		}
		if path == defaultConfigPath {
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				path = ""
			}
		}
	}
	cfg, err := config.LoadFromEnvironment(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "score":
		runScore()
	case "upload-model":
		runUploadModel()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("essayscore version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging and error details in responses")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode, cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.String("artifact_backend", cfg.Model.ArtifactBackend),
		zap.String("storage_path", cfg.Model.StoragePath),
		zap.String("fallback_model_id", cfg.Model.FallbackModelID),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if cfg.Model.Preload {
		go func() { _ = components.Models.Warm(context.Background()) }()
	}

	srv := server.NewServer(
		components.Coordinator,
		components.Models,
		&cfg.Server,
		server.WithLogger(logger),
		server.WithMetrics(components.Metrics),
		server.WithDebug(debugMode),
		server.WithModelDirs(cfg.Model.LocalDir, cfg.Model.FallbackDir),
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func printScoreUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: essayscore score [flags]\n\n")
	fmt.Fprintf(fs.Output(), "Scores one answer (--key/--answer) or a whole exam (--file, a JSON document\nshaped like the /score_exam request body; \"-\" reads stdin).\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  essayscore score --key "Inflation is a general rise in prices" --answer "Prices go up" --max 20
  essayscore score --file exam.json --output json
  essayscore score --server "" --file exam.json     # score in-process, no server needed
`)
}

func runScore() {
	fs := flag.NewFlagSet("score", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (in-process mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = score in-process)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	file := fs.String("file", "", "exam JSON file with an answers array (- for stdin)")
	key := fs.String("key", "", "key answer")
	answer := fs.String("answer", "", "student answer")
	maxScore := fs.Int("max", models.DefaultMaxScore, "max score for --key/--answer")
	questionID := fs.String("question", "", "question id for --key/--answer")
	fs.Usage = func() { printScoreUsage(fs) }
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var reqs []models.ScoringRequest
	switch {
	case *file != "":
		reqs, err = readAnswersFile(*file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read answers: %v\n", err)
			os.Exit(1)
		}
	case *key != "":
		req := models.ScoringRequest{QuestionID: *questionID, KeyAnswer: *key, StudentAnswer: *answer, MaxScore: *maxScore}
		req.Normalize()
		reqs = []models.ScoringRequest{req}
	default:
		fs.Usage()
		os.Exit(2)
	}

	var result *models.BatchResult
	if *serverURL != "" {
		result, err = scoreViaHTTP(*serverURL, reqs)
	} else {
		result, err = scoreLocally(*configPath, reqs)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Score failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteScoreResults(os.Stdout, result, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// readAnswersFile reads an exam document from path, or stdin for "-".
func readAnswersFile(path string) ([]models.ScoringRequest, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return readAnswers(r)
}

// readAnswers decodes {"answers": [...]} the way the batch endpoint does.
func readAnswers(r io.Reader) ([]models.ScoringRequest, error) {
	var doc models.BatchScoreRequest
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode exam: %w", err)
	}
	if doc.Answers == nil {
		return nil, errors.New("answers array is required")
	}
	reqs := make([]models.ScoringRequest, len(*doc.Answers))
	for i, raw := range *doc.Answers {
		reqs[i], _ = models.DecodeBatchAnswer(raw)
	}
	return reqs, nil
}

func scoreLocally(configPath string, reqs []models.ScoringRequest) (*models.BatchResult, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer components.Close()
	return components.Coordinator.ScoreBatch(context.Background(), reqs)
}

var httpClient = &http.Client{Timeout: 5 * time.Minute}

func scoreViaHTTP(serverURL string, reqs []models.ScoringRequest) (*models.BatchResult, error) {
	body, err := json.Marshal(map[string]any{"answers": reqs})
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Post(strings.TrimSuffix(serverURL, "/")+"/score_exam", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp)
	}
	var result models.BatchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

func healthViaHTTP(serverURL string) (*models.HealthResponse, error) {
	resp, err := httpClient.Get(strings.TrimSuffix(serverURL, "/") + "/health")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp)
	}
	var h models.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &h, nil
}

// responseError turns a non-200 response into an error, using the JSON error
// envelope when the server sent one.
func responseError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var e models.ErrorResponse
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		if e.Details != "" {
			return fmt.Errorf("server returned %d: %s (%s)", resp.StatusCode, e.Error, e.Details)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Error)
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	h, err := healthViaHTTP(*serverURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteHealth(os.Stdout, h, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runUploadModel() {
	fs := flag.NewFlagSet("upload-model", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	dir := fs.String("dir", "finsmart-ai-finetuned-model", "local model directory to upload")
	prefix := fs.String("prefix", "", "remote prefix (default: model.storage_path from config)")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *prefix == "" {
		*prefix = cfg.Model.StoragePath
	}
	if info, err := os.Stat(*dir); err != nil || !info.IsDir() {
		fmt.Fprintf(os.Stderr, "Model directory not found: %s\n", *dir)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	names, err := uploadModel(ctx, &cfg.Model, *dir, *prefix)
	for _, n := range names {
		fmt.Printf("uploaded %s\n", n)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Upload failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Uploaded %d files to %s\n", len(names), *prefix)
}

func uploadModel(ctx context.Context, m *config.ModelConfig, dir, prefix string) ([]string, error) {
	store, closeStore, err := openPrimaryStore(ctx, m)
	if err != nil {
		return nil, err
	}
	defer closeStore()
	return artifact.UploadDir(ctx, store, dir, prefix)
}

func printUsage() {
	fmt.Println(`essayscore - Essay answer scoring by embedding similarity

Usage:
  essayscore server [flags]         Start the HTTP server
  essayscore score [flags]          Score an answer or an exam
  essayscore upload-model [flags]   Upload a fine-tuned model to the artifact store
  essayscore status [flags]         Show server and model status
  essayscore version                Show version
  essayscore help                   Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/essayscore/config.yaml)
  --debug            Enable debug logging and error details in 500 responses

Score Flags:
  --config string    Config file path (in-process mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to score in-process.
  --file string      Exam JSON file ({"answers": [...]}), - for stdin
  --key string       Key answer (single-answer mode)
  --answer string    Student answer (single-answer mode)
  --max int          Max score for single-answer mode (default: 100)
  --question string  Question id for single-answer mode
  --output string    Output format: text or json (default: text)

Upload Flags:
  --config string    Config file path
  --dir string       Local model directory (default: finsmart-ai-finetuned-model)
  --prefix string    Remote prefix (default: model.storage_path)

Status Flags:
  --server string    Server URL (default: http://localhost:8080)
  --output string    Output format: text or json (default: text)

Environment:
  ESSAYSCORE_* overrides, FIREBASE_PROJECT_ID, GOOGLE_APPLICATION_CREDENTIALS,
  HF_TOKEN and PORT are read after config.yaml; a .env file in the working
  directory is loaded first.

Examples:
  essayscore server
  essayscore score --file exam.json --output json
  essayscore upload-model --dir ./finsmart-ai-finetuned-model
  essayscore status`)
}
