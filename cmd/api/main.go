package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"civic-api/pkg/app"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
)

// gitHash returns the git hash of the compiled application.
// It is embedded in the binary and is automatically updated by the build process.
// go build -ldflags "-X main.gitHash=`git rev-parse HEAD`"
var gitHash string

// api is the application object, containing global configuration settings and initialized services.
var api = app.Application{
	Name:        "Civic API",
	BaseDomain:  "civic.example.org",
	Description: "Civic API accepts citizen issue reports with photos, detecting duplicate reports and duplicate photos.",
	GitHash:     gitHash,
}

func main() {
	startTime := time.Now()
	// Identify operating environment (dev, test, staging, prod)
	env := os.Getenv("STAGE_NAME")
	if env == "" {
		env = "dev"
	}
	if err := api.Init(env); err != nil {
		log.Fatal("error initializing application: ", err)
	}

	// Setup Gin Routes
	if env != "dev" {
		gin.SetMode(gin.ReleaseMode)
		gin.DisableConsoleColor()
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.MaxMultipartMemory = 8 << 20
	registerRoutes(r)

	// Identify operating environment (AWS or on localhost)
	if _, ok := os.LookupEnv("LAMBDA_TASK_ROOT"); ok {
		// Run API as an AWS Lambda function with an API Gateway proxy
		ginLambda := ginadapter.NewV2(r)
		lambda.Start(func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
			resp, err := ginLambda.ProxyWithContext(ctx, req)
			api.Wait()
			return resp, err
		})
	} else {
		// Run API on localhost for local development, debugging, etc.
		api.Logger.Info().Dur("startup", time.Since(startTime)).Msg("initialized API")
		log.Fatal(r.Run(":8080"))
	}
}

// registerRoutes initializes all the routes with the Gin router.
func registerRoutes(r *gin.Engine) {
	initDiagRoutes(r)
	registerIssueRoutes(r)
	registerSimilarImageRoutes(r)
	registerEventRoutes(r)
	registerMetricRoutes(r)
	r.NoRoute(func(c *gin.Context) {
		abortWithError(c, http.StatusNotFound, errNotFound(c.Request.URL.Path))
	})
}

// requestLogger logs each request with the application's structured logger.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		evt := api.Logger.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			evt = api.Logger.Error()
		}
		evt.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}
