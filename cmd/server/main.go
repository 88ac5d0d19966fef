package main

import (
	"github.com/rs/zerolog/log"

	"hrops/internal/app/server"
)

func main() {
	if err := server.Run(); err != nil {
		log.Fatal().Err(err).Msg("payroll server stopped")
	}
}
