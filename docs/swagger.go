// Package docs AuthGate API documentation
package docs

// Swagger documentation info
// @title AuthGate API
// @version 1.0
// @description Central API documentation for the AuthGate authentication backend

// @host localhost:8000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT token.

// Auth Service Endpoints
// @tag.name auth
// @tag.description Authentication, token rotation and Google OAuth
