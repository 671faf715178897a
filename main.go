package main

import (
	_ "github.com/joho/godotenv/autoload" // Autoload .env file.

	"github.com/ludotheque/ludo-api/cmd/app"
)

// @title           Ludothèque API
// @version         1.0
// @description     Members, catalogue, loans and bookings of a toy library.
//
// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html
//
// @BasePath  /api/v1
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer token or API key
//
// @externalDocs.description  OpenAPI
// @externalDocs.url          https://swagger.io/resources/open-api/
func main() {
	if err := app.Start(); err != nil {
		panic(err)
	}
}
