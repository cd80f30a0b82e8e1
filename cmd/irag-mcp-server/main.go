package main

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/OmNagvekar/Information-Retrieval-RAG/internal/logger"
	"github.com/OmNagvekar/Information-Retrieval-RAG/server"
)

func main() {
	log, err := logger.New(logger.Config{})
	if err != nil {
		panic(err)
	}

	log.Info("Starting irag-mcp server")

	srv := server.CreateServer(log)
	if err := srv.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		log.Fatal("Server failed: %v", err)
	}
}
