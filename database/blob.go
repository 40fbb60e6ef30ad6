// Copyright 2026 VirtualConnekt
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database

import (
	"errors"

	badger "github.com/dgraph-io/badger/v4"
)

var ErrBlobNotFound = errors.New("blob not found")

// blobKeyPrefix namespaces submission content in the blob store
var blobKeyPrefix = []byte("content/")

func blobKey(contentHash []byte) []byte {
	return append(blobKeyPrefix[:len(blobKeyPrefix):len(blobKeyPrefix)], contentHash...)
}

// PutBlob stores a content-addressed payload body. The caller is expected
// to have verified that the key is the payload's hash.
func (d *Database) PutBlob(
	contentHash []byte,
	payload []byte,
	txn *Txn,
) error {
	if txn == nil {
		txn = d.Transaction(true)
		defer txn.Commit() //nolint:errcheck
	}
	return txn.Blob().Set(blobKey(contentHash), payload)
}

// GetBlob retrieves a content-addressed payload body
func (d *Database) GetBlob(
	contentHash []byte,
	txn *Txn,
) ([]byte, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Commit() //nolint:errcheck
	}
	item, err := txn.Blob().Get(blobKey(contentHash))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrBlobNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}
