// Package config loads gatehouse settings from the environment.
//
// Load reads optional dotenv files with godotenv (existing variables win),
// then parses the environment into Config with caarlos0/env. Every field has
// an env tag and most have defaults, so an empty environment yields a working
// development configuration with in-memory stores.
package config
