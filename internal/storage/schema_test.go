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
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gowhiteboard/internal/domain"
)

func TestSavedDocumentConformsToSchema(t *testing.T) {
	s := newTestFileStore(t, 1)
	b := sampleBoard("b1", "Schema")
	// nil collections marshal as null and stay valid.
	b.Elements.TextBoxes = nil
	if err := s.Save(context.Background(), b); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(s.Path("b1"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := ValidateDocument(data); err != nil {
		t.Fatalf("ValidateDocument: %v", err)
	}
}

func TestDecodeBoardRejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"not json":      `{`,
		"missing name":  `{"id":"b","elements":{}}`,
		"bad color":     `{"id":"b","name":"x","elements":{"notes":[{"id":"n","position":{"x":0,"y":0},"text":"","color":"red"}]}}`,
		"empty note id": `{"id":"b","name":"x","elements":{"notes":[{"id":"","position":{"x":0,"y":0},"text":"","color":"pink"}]}}`,
		"duplicate ids": `{"id":"b","name":"x","elements":{"nodes":[{"id":"n","position":{"x":0,"y":0},"text":""},{"id":"n","position":{"x":1,"y":1},"text":""}]}}`,
		"zero font":     `{"id":"b","name":"x","elements":{"textBoxes":[{"id":"t","position":{"x":0,"y":0},"text":"","fontSize":0,"width":10}]}}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeBoard([]byte(doc)); !errors.Is(err, ErrInvalidDocument) {
				t.Fatalf("DecodeBoard = %v, want ErrInvalidDocument", err)
			}
		})
	}
}

func TestReadBoardFileKeepsDomainError(t *testing.T) {
	doc := `{"id":"b","name":"x","elements":{"nodes":[{"id":"n","position":{"x":0,"y":0},"text":""},{"id":"n","position":{"x":1,"y":1},"text":""}]}}`
	path := filepath.Join(t.TempDir(), "dup.json")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := ReadBoardFile(path)
	if !errors.Is(err, ErrInvalidDocument) || !errors.Is(err, domain.ErrDuplicateID) {
		t.Fatalf("ReadBoardFile = %v, want ErrInvalidDocument wrapping ErrDuplicateID", err)
	}
}
