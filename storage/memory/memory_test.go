package memory

import (
	"testing"

	"xdao.co/custodian/storage"
	"xdao.co/custodian/storage/storetest"
)

func TestMemoryConformance(t *testing.T) {
	storetest.RunStoreConformance(t, func(t *testing.T) storage.Store {
		s := New()
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}
