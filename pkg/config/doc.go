// Package config loads application settings from a YAML file.
//
// Values may reference environment variables as ${NAME} or
// ${NAME:-fallback}. A bare $ is kept verbatim and $$ is a literal $.
// Keys missing from the file keep their Defaults.
//
//	app:
//	  name: users-api
//	  env: ${APP_ENV:-production}
//	  display_exception: false
//	server:
//	  addr: ":8080"
//	  request_timeout: 10s
//	redis:
//	  url: ${REDIS_URL}
//	cache:
//	  enabled: true
//	  backend: redis
//	  ttl: 1m
//
// Load the file at startup and pass the values to the application options:
//
//	cfg, err := config.Load("config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	app := conveyor.New(
//	    conveyor.WithBasePath(cfg.App.BasePath),
//	    conveyor.WithDisplayErrors(cfg.App.DisplayException),
//	)
package config
