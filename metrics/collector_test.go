package metrics

import (
	"sync"
	"testing"
)

func TestCollector_IncrementMethods(t *testing.T) {
	c := NewCollector("sess-001")

	c.IncResolutionStarted()
	c.IncResolutionStarted()
	c.IncResolutionStarted()
	c.IncResolutionSucceeded()
	c.IncResolutionFailed("download")
	c.IncResolutionFailed("not_found")
	c.AddBytesDownloaded(100)
	c.AddBytesDownloaded(-5)
	c.IncArchiveUnpacked()
	c.IncFilePulled()
	c.IncFilePulled()
	c.IncDirectoryPulled()
	c.IncPullFailure()
	c.IncCallbackFailure()

	s := c.Snapshot()

	if s.ResolutionsStarted != 3 {
		t.Errorf("ResolutionsStarted = %d, want 3", s.ResolutionsStarted)
	}
	if s.ResolutionsSucceeded != 1 {
		t.Errorf("ResolutionsSucceeded = %d, want 1", s.ResolutionsSucceeded)
	}
	if s.ResolutionsFailed != 2 {
		t.Errorf("ResolutionsFailed = %d, want 2", s.ResolutionsFailed)
	}
	if s.FailuresByKind["download"] != 1 || s.FailuresByKind["not_found"] != 1 {
		t.Errorf("FailuresByKind = %v, want download=1 not_found=1", s.FailuresByKind)
	}
	if s.BytesDownloaded != 100 {
		t.Errorf("BytesDownloaded = %d, want 100 (negative adds ignored)", s.BytesDownloaded)
	}
	if s.ArchivesUnpacked != 1 {
		t.Errorf("ArchivesUnpacked = %d, want 1", s.ArchivesUnpacked)
	}
	if s.FilesPulled != 2 {
		t.Errorf("FilesPulled = %d, want 2", s.FilesPulled)
	}
	if s.DirectoriesPulled != 1 {
		t.Errorf("DirectoriesPulled = %d, want 1", s.DirectoriesPulled)
	}
	if s.PullFailures != 1 {
		t.Errorf("PullFailures = %d, want 1", s.PullFailures)
	}
	if s.CallbackFailures != 1 {
		t.Errorf("CallbackFailures = %d, want 1", s.CallbackFailures)
	}
	if s.SessionID != "sess-001" {
		t.Errorf("SessionID = %q, want sess-001", s.SessionID)
	}
}

func TestCollector_NilReceiver(t *testing.T) {
	var c *Collector

	// None of these should panic
	c.IncResolutionStarted()
	c.IncResolutionSucceeded()
	c.IncResolutionFailed("download")
	c.AddBytesDownloaded(10)
	c.IncArchiveUnpacked()
	c.IncFilePulled()
	c.IncDirectoryPulled()
	c.IncPullFailure()
	c.IncCallbackFailure()

	s := c.Snapshot()
	if s.ResolutionsStarted != 0 {
		t.Errorf("nil collector snapshot should be zero, got %+v", s)
	}
}

func TestCollector_SnapshotIsolation(t *testing.T) {
	c := NewCollector("sess-iso")
	c.IncResolutionFailed("download")

	s := c.Snapshot()
	s.FailuresByKind["download"] = 99

	if got := c.Snapshot().FailuresByKind["download"]; got != 1 {
		t.Errorf("collector mutated through snapshot: download = %d, want 1", got)
	}
}

func TestCollector_ConcurrentIncrements(t *testing.T) {
	c := NewCollector("sess-conc")

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.IncResolutionStarted()
			c.AddBytesDownloaded(2)
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	if s.ResolutionsStarted != 50 {
		t.Errorf("ResolutionsStarted = %d, want 50", s.ResolutionsStarted)
	}
	if s.BytesDownloaded != 100 {
		t.Errorf("BytesDownloaded = %d, want 100", s.BytesDownloaded)
	}
}
