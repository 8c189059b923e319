package middleware

import (
	"testing"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		// Static routes - no normalization
		{
			name:     "root path",
			path:     "/",
			expected: "/",
		},
		{
			name:     "health endpoint",
			path:     "/health",
			expected: "/health",
		},
		{
			name:     "metrics endpoint",
			path:     "/metrics",
			expected: "/metrics",
		},
		{
			name:     "recalculate endpoint",
			path:     "/internal/scores/recalculate",
			expected: "/internal/scores/recalculate",
		},

		// Viewer patterns
		{
			name:     "similar viewers",
			path:     "/viewers/42/similar",
			expected: "/viewers/{id}/similar",
		},
		{
			name:     "structural bias",
			path:     "/viewers/42/bias",
			expected: "/viewers/{id}/bias",
		},
		{
			name:     "crew suggestions",
			path:     "/viewers/17/crew-suggestions",
			expected: "/viewers/{id}/crew-suggestions",
		},
		{
			name:     "recommendations",
			path:     "/viewers/99/recommendations",
			expected: "/viewers/{id}/recommendations",
		},
		{
			name:     "profile",
			path:     "/viewers/5/profile",
			expected: "/viewers/{id}/profile",
		},
		{
			name:     "viewer by id",
			path:     "/viewers/123",
			expected: "/viewers/{id}",
		},

		// Edge cases
		{
			name:     "unknown viewer subresource",
			path:     "/viewers/42/watchlist",
			expected: "/viewers/42/watchlist",
		},
		{
			name:     "viewers collection",
			path:     "/viewers/",
			expected: "/viewers/",
		},
		{
			name:     "unknown route",
			path:     "/unknown/path",
			expected: "/unknown/path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := normalizePath(tt.path)
			if result != tt.expected {
				t.Errorf("normalizePath(%q) = %q, want %q", tt.path, result, tt.expected)
			}
		})
	}
}

func TestNormalizePath_CardinalityControl(t *testing.T) {
	// Different viewer IDs must normalize to the same pattern.
	paths := []string{
		"/viewers/1/recommendations",
		"/viewers/2/recommendations",
		"/viewers/999/recommendations",
		"/viewers/123456789/recommendations",
	}

	expected := "/viewers/{id}/recommendations"
	seen := make(map[string]bool)

	for _, path := range paths {
		result := normalizePath(path)
		if result != expected {
			t.Errorf("normalizePath(%q) = %q, want %q", path, result, expected)
		}
		seen[result] = true
	}

	if len(seen) != 1 {
		t.Errorf("Expected all paths to normalize to single pattern, got %d patterns: %v", len(seen), seen)
	}
}
