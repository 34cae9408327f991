package metrics

import (
	"testing"
)

func TestNewCollector(t *testing.T) {
	collector := NewCollector()

	if collector == nil {
		t.Fatal("NewCollector() returned nil")
	}

	if collector.engineMetrics == nil {
		t.Fatal("engineMetrics not initialized")
	}

	if collector.operationCounters == nil {
		t.Fatal("operationCounters not initialized")
	}

	metrics := collector.GetMetrics()
	if metrics.StartTime.IsZero() {
		t.Error("StartTime not initialized")
	}
}

func TestSessionManagementMetrics(t *testing.T) {
	collector := NewCollector()

	collector.IncrementSessionCreated()
	collector.IncrementSessionCreated()
	collector.IncrementSessionCreated()

	metrics := collector.GetMetrics()
	if metrics.SessionsCreated != 3 {
		t.Errorf("Expected 3 sessions created, got %d", metrics.SessionsCreated)
	}

	if metrics.ActiveSessions != 3 {
		t.Errorf("Expected 3 active sessions, got %d", metrics.ActiveSessions)
	}

	if metrics.MaxConcurrentSessions != 3 {
		t.Errorf("Expected max concurrent sessions 3, got %d", metrics.MaxConcurrentSessions)
	}

	collector.IncrementSessionClosed()
	metrics = collector.GetMetrics()

	if metrics.SessionsClosed != 1 {
		t.Errorf("Expected 1 session closed, got %d", metrics.SessionsClosed)
	}

	if metrics.ActiveSessions != 2 {
		t.Errorf("Expected 2 active sessions after close, got %d", metrics.ActiveSessions)
	}

	// Max concurrent should remain the same
	if metrics.MaxConcurrentSessions != 3 {
		t.Errorf("Expected max concurrent sessions to remain 3, got %d", metrics.MaxConcurrentSessions)
	}
}

func TestReconciliationMetrics(t *testing.T) {
	collector := NewCollector()

	collector.IncrementDiffComputed(4)
	collector.IncrementDiffComputed(0)
	collector.IncrementDiffComputed(2)
	collector.IncrementDiffError()

	metrics := collector.GetMetrics()

	if metrics.DiffsComputed != 3 {
		t.Errorf("Expected 3 diffs computed, got %d", metrics.DiffsComputed)
	}

	if metrics.PatchesEmitted != 6 {
		t.Errorf("Expected 6 patches emitted, got %d", metrics.PatchesEmitted)
	}

	if metrics.DiffErrors != 1 {
		t.Errorf("Expected 1 diff error, got %d", metrics.DiffErrors)
	}
}

func TestTemplateAndPredictionMetrics(t *testing.T) {
	collector := NewCollector()

	collector.IncrementTemplateExtracted()
	collector.IncrementTemplateExtracted()
	collector.IncrementTemplateExtracted()
	collector.IncrementTemplateRejected()
	collector.IncrementTemplateInstalled()
	collector.IncrementTemplateInstalled()

	collector.IncrementPredictionHit()
	collector.IncrementPredictionHit()
	collector.IncrementPredictionHit()
	collector.IncrementPredictionMiss()
	collector.IncrementCacheEviction()

	metrics := collector.GetMetrics()

	if metrics.TemplatesExtracted != 3 {
		t.Errorf("Expected 3 templates extracted, got %d", metrics.TemplatesExtracted)
	}

	if metrics.TemplatesRejected != 1 {
		t.Errorf("Expected 1 template rejected, got %d", metrics.TemplatesRejected)
	}

	if metrics.TemplatesInstalled != 2 {
		t.Errorf("Expected 2 templates installed, got %d", metrics.TemplatesInstalled)
	}

	if metrics.CacheEvictions != 1 {
		t.Errorf("Expected 1 cache eviction, got %d", metrics.CacheEvictions)
	}

	// Hit rate: 3 hits out of 4 lookups = 75%
	hitRate := collector.GetHitRate()
	if hitRate != 75.0 {
		t.Errorf("Expected hit rate 75.0%%, got %.1f%%", hitRate)
	}

	// Extraction rate: 3 extracted out of 4 attempts = 75%
	extractionRate := collector.GetExtractionRate()
	if extractionRate != 75.0 {
		t.Errorf("Expected extraction rate 75.0%%, got %.1f%%", extractionRate)
	}
}

func TestRatesWithNoOperations(t *testing.T) {
	collector := NewCollector()

	if rate := collector.GetHitRate(); rate != 0.0 {
		t.Errorf("Expected 0%% hit rate with no lookups, got %.1f%%", rate)
	}

	if rate := collector.GetExtractionRate(); rate != 0.0 {
		t.Errorf("Expected 0%% extraction rate with no attempts, got %.1f%%", rate)
	}

	if eff := collector.GetMemoryEfficiency(); eff != 0.0 {
		t.Errorf("Expected 0 memory efficiency with no sessions, got %.1f", eff)
	}
}

func TestMemoryMetrics(t *testing.T) {
	collector := NewCollector()

	collector.UpdateMemoryUsage(1024*1024, 512*1024)
	collector.IncrementSessionCreated()
	collector.IncrementSessionCreated()

	metrics := collector.GetMetrics()

	if metrics.TotalMemoryUsage != 1024*1024 {
		t.Errorf("Expected total memory 1MB, got %d", metrics.TotalMemoryUsage)
	}

	if metrics.AverageSessionMemory != 512*1024 {
		t.Errorf("Expected average session memory 512KB, got %d", metrics.AverageSessionMemory)
	}

	efficiency := collector.GetMemoryEfficiency()
	expectedEff := float64(1024*1024) / float64(2)
	if efficiency != expectedEff {
		t.Errorf("Expected memory efficiency %.1f, got %.1f", expectedEff, efficiency)
	}
}

func TestCleanupMetrics(t *testing.T) {
	collector := NewCollector()

	collector.IncrementCleanupOperation(5)
	collector.IncrementCleanupOperation(3)
	collector.IncrementCleanupOperation(2)

	metrics := collector.GetMetrics()

	if metrics.CleanupOperations != 3 {
		t.Errorf("Expected 3 cleanup operations, got %d", metrics.CleanupOperations)
	}

	if metrics.ExpiredSessionsRemoved != 10 {
		t.Errorf("Expected 10 expired sessions removed, got %d", metrics.ExpiredSessionsRemoved)
	}
}

func TestCustomCounters(t *testing.T) {
	collector := NewCollector()

	collector.IncrementCustomCounter("custom_operation")
	collector.IncrementCustomCounter("custom_operation")
	collector.IncrementCustomCounter("another_operation")

	counters := collector.GetCustomCounters()

	if counters["custom_operation"] != 2 {
		t.Errorf("Expected custom_operation count 2, got %d", counters["custom_operation"])
	}

	if counters["another_operation"] != 1 {
		t.Errorf("Expected another_operation count 1, got %d", counters["another_operation"])
	}
}

func TestMetricsReset(t *testing.T) {
	collector := NewCollector()

	collector.IncrementSessionCreated()
	collector.IncrementDiffComputed(3)
	collector.IncrementTemplateExtracted()
	collector.IncrementPredictionHit()
	collector.IncrementCustomCounter("test_counter")

	metrics := collector.GetMetrics()
	if metrics.SessionsCreated == 0 {
		t.Error("Expected non-zero sessions created before reset")
	}

	collector.Reset()

	metrics = collector.GetMetrics()
	if metrics.SessionsCreated != 0 {
		t.Errorf("Expected sessions created to be 0 after reset, got %d", metrics.SessionsCreated)
	}

	if metrics.DiffsComputed != 0 {
		t.Errorf("Expected diffs to be 0 after reset, got %d", metrics.DiffsComputed)
	}

	if metrics.PredictionHits != 0 {
		t.Errorf("Expected prediction hits to be 0 after reset, got %d", metrics.PredictionHits)
	}

	counters := collector.GetCustomCounters()
	if len(counters) != 0 {
		t.Errorf("Expected custom counters to be empty after reset, got %d", len(counters))
	}
}

func TestConcurrentAccess(t *testing.T) {
	collector := NewCollector()

	done := make(chan bool)

	// Writer goroutine
	go func() {
		for i := 0; i < 100; i++ {
			collector.IncrementSessionCreated()
			collector.IncrementDiffComputed(1)
			collector.IncrementPredictionHit()
		}
		done <- true
	}()

	// Reader goroutine
	go func() {
		for i := 0; i < 100; i++ {
			_ = collector.GetMetrics()
			_ = collector.GetHitRate()
			_ = collector.GetCustomCounters()
		}
		done <- true
	}()

	<-done
	<-done

	metrics := collector.GetMetrics()
	if metrics.SessionsCreated != 100 {
		t.Errorf("Expected 100 sessions created, got %d", metrics.SessionsCreated)
	}

	if metrics.DiffsComputed != 100 {
		t.Errorf("Expected 100 diffs, got %d", metrics.DiffsComputed)
	}
}
