package main

import (
	"os"

	"github.com/yigit/uniadmit/internal/pkg/logger"
	"github.com/yigit/uniadmit/internal/server"
)

// @title UniAdmit API
// @version 1.0
// @description Admissions, enrollment and payments API for a university registry
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@uniadmit.local

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authorization

func main() {
	srv, err := server.NewServer()
	if err != nil {
		// setup functions already logged the details
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	// blocks until shutdown signal
	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
