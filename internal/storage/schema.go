/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gowhiteboard/internal/domain"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

//go:embed board.schema.json
var boardSchemaJSON []byte

// ErrInvalidDocument wraps schema and structural validation failures.
var ErrInvalidDocument = errors.New("invalid board document")

var boardSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(boardSchemaJSON))
})

// BoardSchema returns the JSON schema board documents must conform to.
func BoardSchema() []byte { return append([]byte(nil), boardSchemaJSON...) }

// ValidateDocument checks raw JSON against board.schema.json.
func ValidateDocument(data []byte) error {
	s, err := boardSchema()
	if err != nil {
		return fmt.Errorf("compile board schema: %w", err)
	}
	res, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(msgs, "; "))
}

// DecodeBoard validates data against the schema and the domain invariants
// and returns the decoded board.
func DecodeBoard(data []byte) (domain.Board, error) {
	if err := ValidateDocument(data); err != nil {
		return domain.Board{}, err
	}
	var b domain.Board
	if err := json.Unmarshal(data, &b); err != nil {
		return domain.Board{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := b.Validate(); err != nil {
		return domain.Board{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return b, nil
}

// EncodeBoard renders b in the indented on-disk form.
func EncodeBoard(b domain.Board) ([]byte, error) {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal board: %w", err)
	}
	return append(data, '\n'), nil
}
