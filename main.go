package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"agrorain/advisory"
	"agrorain/climate"
	"agrorain/config"
	"agrorain/cronjobs"
	"agrorain/kb"
	"agrorain/metrics"
	"agrorain/nasapower"
	"agrorain/retrieval"
	"agrorain/routes"
)

func main() {
	// Load .env file, optional in deployed environments
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file loaded, reading configuration from environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if cfg.OpenAIKey != "" {
		fmt.Println("OPENAI_API_KEY loaded")
	}
	if cfg.HFToken != "" {
		fmt.Println("HF_TOKEN loaded")
	}

	collector := metrics.NewCollector("agrorain")

	// Knowledge base: Firestore when credentials are set, embedded defaults
	// otherwise.
	docs := kb.DefaultDocuments()
	if cfg.FirebaseCredentials != "" {
		fsClient, err := kb.InitFirestore(context.Background(), cfg.FirebaseCredentials)
		if err != nil {
			log.Fatalf("Failed to initialize Firestore: %v", err)
		}
		defer kb.CloseFirestore()

		loaded, err := kb.LoadDocuments(context.Background(), fsClient, cfg.KBCollection)
		if err != nil {
			log.Printf("Warning: could not load knowledge base from Firestore, using defaults: %v", err)
		} else if len(loaded) > 0 {
			docs = loaded
		}
	}

	// Retrieval rides on the same OpenAI key as the primary backend; without a
	// key advisories run context-free.
	var retriever *retrieval.Retriever
	if cfg.OpenAIKey != "" {
		retriever = retrieval.New(retrieval.NewOpenAIEmbedder(func() string {
			return os.Getenv("OPENAI_API_KEY")
		}))
		if err := retriever.IndexDocuments(context.Background(), docs); err != nil {
			log.Printf("Warning: knowledge base indexing failed, continuing without context: %v", err)
			retriever = nil
		}
	}

	backends := []advisory.Backend{
		advisory.NewOpenAIBackend(func() string { return os.Getenv("OPENAI_API_KEY") }, cfg.OpenAIModel),
		advisory.NewHostedBackend(func() string { return os.Getenv("HF_TOKEN") }, cfg.HFModel),
	}
	orch := advisory.NewOrchestrator(backends, retriever, cfg.RetrievalLimit, cfg.BackendTimeout, collector)

	svc := climate.NewService(nasapower.NewClient(), cfg, clockwork.NewRealClock(), collector)

	if _, err := cronjobs.InitCronJobs(svc, cfg.RefreshSpec); err != nil {
		log.Fatalf("Failed to start cron jobs: %v", err)
	}

	r := routes.SetupRouter(svc, orch)
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
