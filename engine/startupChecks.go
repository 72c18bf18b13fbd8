package engine

import (
	"fmt"
	"os"

	"github.com/drummonds/resumefeedback/config"
	"github.com/drummonds/resumefeedback/engine/pdfrenderer"
)

// StartupChecks performs all the checks to make sure everything works
func (serverHandler *ServerHandler) StartupChecks() error {
	if err := rendererChecks(serverHandler.ServerConfig); err != nil {
		return err
	}
	if serverHandler.ServerConfig.StorageType == "" || serverHandler.ServerConfig.StorageType == "local" {
		if err := documentDirectoryChecks(serverHandler.ServerConfig); err != nil {
			return err
		}
	}
	feedbackChecks(serverHandler.ServerConfig)
	return nil
}

func rendererChecks(serverConfig config.ServerConfig) error {
	if _, err := pdfrenderer.NewLoadFunc(serverConfig.Renderer); err != nil {
		Logger.Error("Invalid renderer configured", "renderer", serverConfig.Renderer, "error", err)
		return err
	}
	Logger.Info("Renderer configured", "renderer", serverConfig.Renderer,
		"scale", serverConfig.Scale, "quality", serverConfig.Quality, "maxRetries", serverConfig.MaxRetries)
	return nil
}

func feedbackChecks(serverConfig config.ServerConfig) {
	if serverConfig.OpenAIAPIKey == "" {
		Logger.Warn("OPENAI_API_KEY not configured, uploads will convert but analysis will fail")
		return
	}
	Logger.Info("AI feedback configured", "model", serverConfig.OpenAIModel)
}

// documentDirectoryChecks ensures the document storage directory exists
func documentDirectoryChecks(serverConfig config.ServerConfig) error {
	if serverConfig.DocumentPath == "" {
		Logger.Warn("Document path not configured")
		return nil
	}

	docInfo, err := os.Stat(serverConfig.DocumentPath)
	if err != nil {
		if os.IsNotExist(err) {
			Logger.Info("Creating document directory", "path", serverConfig.DocumentPath)
			err = os.MkdirAll(serverConfig.DocumentPath, 0755)
			if err != nil {
				Logger.Error("Failed to create document directory", "path", serverConfig.DocumentPath, "error", err)
				return err
			}
			return nil
		}
		Logger.Error("Error checking document directory", "path", serverConfig.DocumentPath, "error", err)
		return err
	}

	if !docInfo.IsDir() {
		Logger.Error("Document path exists but is not a directory", "path", serverConfig.DocumentPath)
		return fmt.Errorf("document path is not a directory: %s", serverConfig.DocumentPath)
	}

	Logger.Info("Document directory exists", "path", serverConfig.DocumentPath)
	return nil
}
