// Package tmdb wraps the The Movie Database videos endpoint.
package tmdb
