// Copyright 2025 Tom Barlow
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

package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tombee/keystash/internal/log"
)

// watchMaxWaitFactor bounds how many debounce windows a change can be
// held back by continuous activity.
const watchMaxWaitFactor = 5

// Watch reports writes and removals of id. Only the dir driver supports it:
// the store directory is watched and events for other files are ignored.
// Events arriving within the debounce window of each other collapse into
// one change carrying the latest state.
func (f *FileStore) Watch(ctx context.Context, id string) (<-chan SecretChange, error) {
	d, ok := f.blobs.(*dirBlobs)
	if !ok {
		return nil, fmt.Errorf("%w: %s driver", ErrWatchUnsupported, f.driver)
	}
	if err := ensurePrivateDir(d.dir); err != nil {
		return nil, f.ioError("watch", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(d.dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch path: %w", err)
	}

	target := filepath.Clean(d.path(f.ref(id)))
	logger := f.logger.With(log.SecretID(id))
	ch := make(chan SecretChange, 16)

	go func() {
		defer close(ch)
		defer fsw.Close()

		// pending holds the latest change seen during the debounce window;
		// fire is nil while nothing is pending. A steady stream of events
		// still flushes once maxWait has passed since the first of them.
		var (
			pending *SecretChange
			first   time.Time
			timer   *time.Timer
			fire    <-chan time.Time
		)
		maxWait := watchMaxWaitFactor * f.watchDebounce
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		emit := func(change SecretChange) bool {
			select {
			case ch <- change:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-fire:
				fire = nil
				change := *pending
				pending = nil
				if !emit(change) {
					return
				}
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}

				change := SecretChange{ID: id, Timestamp: time.Now()}
				switch {
				case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
				case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
					change.Deleted = true
				default:
					continue
				}

				if f.watchDebounce <= 0 {
					if !emit(change) {
						return
					}
					continue
				}

				if pending == nil {
					first = change.Timestamp
				}
				pending = &change

				wait := f.watchDebounce
				if left := maxWait - time.Since(first); left < wait {
					wait = max(left, 0)
				}
				if timer == nil {
					timer = time.NewTimer(wait)
				} else {
					timer.Reset(wait)
				}
				fire = timer.C
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				logger.Error("secret watcher error", log.Error(err))
			}
		}
	}()

	logger.Debug("watching secret", slog.String("dir", d.dir))
	return ch, nil
}
