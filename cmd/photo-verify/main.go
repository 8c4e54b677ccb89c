package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/gin-gonic/gin"

	"github.com/ironsheep/photo-verify/internal/api"
	"github.com/ironsheep/photo-verify/internal/config"
	"github.com/ironsheep/photo-verify/internal/ocr"
	"github.com/ironsheep/photo-verify/internal/ocr/rekognition"
	"github.com/ironsheep/photo-verify/internal/ocr/tesseract"
	"github.com/ironsheep/photo-verify/internal/server"
	"github.com/ironsheep/photo-verify/internal/storage"
	"github.com/ironsheep/photo-verify/internal/verify"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func usage() {
	fmt.Println("photo-verify - checks that photos were taken at the venue")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  photo-verify [serve]          Start the HTTP API (default)")
	fmt.Println("  photo-verify mcp              Run the MCP server on stdin/stdout")
	fmt.Println("  photo-verify check FILE...    Validate local files and print the reports")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables (also read from .env):")
	fmt.Println("  PORT=8080                       HTTP listen port")
	fmt.Println("  BUCKET=<name>                   Bucket for signed upload URLs")
	fmt.Println("  OCR_ENGINE=tesseract            tesseract or rekognition")
	fmt.Println("  OCR_LANGUAGES=ja,en             Recognition language hints")
	fmt.Println("  OCR_TIMEOUT=30s                 Recognition deadline")
	fmt.Println("  MATCH_MAX_EDITS=0               Tolerated caption misreads")
	fmt.Println("  IMAGE_MAX_PIXELS=64000000       Largest image decoded for OCR")
	fmt.Println("  MESSAGES_LANG=ja                Report language (ja or en)")
	fmt.Println("  PHOTO_VERIFY_LOG_LEVEL=debug    Enable debug logging")
}

func main() {
	command := "serve"
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("photo-verify %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			usage()
			return
		case "serve", "mcp", "check":
			command = os.Args[1]
		default:
			fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
			usage()
			os.Exit(2)
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol and reports)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if cfg.Debug() {
		log.Printf("photo-verify v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	ctx := context.Background()
	rec, err := newRecognizer(ctx, cfg)
	if err != nil {
		log.Fatalf("Recognizer error: %v", err)
	}
	validator := verify.New(rec, verify.WithMessages(cfg.Messages()), verify.WithDebug(cfg.Debug()))

	switch command {
	case "mcp":
		srv := server.New(validator, cfg.Rules, Version)
		if err := srv.Run(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	case "check":
		os.Exit(check(ctx, validator, cfg.Rules, os.Args[2:]))
	default:
		if err := serve(ctx, cfg, validator); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}
}

func newRecognizer(ctx context.Context, cfg *config.Config) (ocr.Recognizer, error) {
	switch cfg.OCREngine {
	case config.EngineRekognition:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		return rekognition.NewFromConfig(awsCfg, float32(cfg.MinConfidence)), nil
	default:
		var opts []tesseract.Option
		if cfg.TessdataPrefix != "" {
			opts = append(opts, tesseract.WithTessdataPrefix(cfg.TessdataPrefix))
		}
		if cfg.Debug() {
			log.Printf("Using Tesseract %s", tesseract.Version())
		}
		return tesseract.New(opts...), nil
	}
}

func serve(ctx context.Context, cfg *config.Config, validator *verify.Validator) error {
	var signer storage.Signer
	if cfg.Bucket == "" {
		log.Println("BUCKET is not set, upload URLs are disabled")
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return fmt.Errorf("load AWS config: %w", err)
		}
		signer = storage.NewS3SignerFromConfig(awsCfg, cfg.Bucket,
			storage.WithPrefix(cfg.UploadPrefix), storage.WithTTL(cfg.UploadURLTTL))
	}

	if !cfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := api.NewHandler(validator, cfg.Rules, signer, cfg.MaxUploadBytes)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.NewRouter(handler),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	log.Println("Server stopped.")
	return nil
}

type checkResult struct {
	File   string         `json:"file"`
	Report *verify.Report `json:"report,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// check validates each file and prints one JSON document per file. The exit
// status is 1 when any file is rejected or unreadable.
func check(ctx context.Context, validator *verify.Validator, rules verify.Rules, files []string) int {
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "check: no files given")
		return 2
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	status := 0
	for _, file := range files {
		res := checkResult{File: file}
		data, err := os.ReadFile(file)
		if err == nil {
			res.Report, err = validator.Validate(ctx, data, rules)
		}
		if err != nil {
			res.Error = err.Error()
		}
		if res.Report == nil || !res.Report.Valid {
			status = 1
		}
		if err := encoder.Encode(res); err != nil {
			log.Printf("Failed to encode report: %v", err)
		}
	}
	return status
}
