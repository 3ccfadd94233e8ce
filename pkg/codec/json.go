// Package codec provides encoding and decoding of request and response
// bodies for handlers built on the dispatch engine.
package codec

import (
	"encoding/json"
	"io"
	"net/http"
)

// Codec decodes request bodies and encodes response bodies. T is the request
// type and U the response type.
type Codec[T any, U any] interface {
	// Decode extracts and deserializes the request body into a value of type T.
	Decode(r *http.Request) (T, error)

	// Encode serializes a value of type U to the response with the given
	// status code, setting the appropriate Content-Type.
	Encode(w http.ResponseWriter, status int, resp U) error
}

// JSONCodec is a Codec that uses JSON for marshaling and unmarshaling.
type JSONCodec[T any, U any] struct{}

// NewJSONCodec creates a new JSONCodec instance for the specified types.
func NewJSONCodec[T any, U any]() *JSONCodec[T, U] {
	return &JSONCodec[T, U]{}
}

// Decode decodes the request body into a value of type T.
// It reads the entire request body and unmarshals it from JSON.
func (c *JSONCodec[T, U]) Decode(r *http.Request) (T, error) {
	var data T

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return data, err
	}
	defer r.Body.Close()

	err = json.Unmarshal(body, &data)
	if err != nil {
		return data, err
	}

	return data, nil
}

// Encode encodes a value of type U into the response. It marshals the value
// first so an encoding failure does not leave a half-written response, then
// writes the header and body.
func (c *JSONCodec[T, U]) Encode(w http.ResponseWriter, status int, resp U) error {
	body, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(body)
	return err
}
