package link

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		base string
		want string
	}{
		{"absolute unchanged", "http://a.onion/page", "", "http://a.onion/page"},
		{"root slash kept", "http://a.onion/", "", "http://a.onion/"},
		{"trailing slash stripped", "http://a.onion/dir/", "", "http://a.onion/dir"},
		{"fragment stripped", "http://a.onion/page#top", "", "http://a.onion/page"},
		{"relative resolved", "about", "http://a.onion/dir/index", "http://a.onion/dir/about"},
		{"root relative resolved", "/contact/", "http://a.onion/dir/index", "http://a.onion/contact"},
		{"host lowercased", "http://A.ONION/Page", "", "http://a.onion/Page"},
		{"query kept", "http://a.onion/s?q=1#x", "", "http://a.onion/s?q=1"},
		{"absolute ignores base", "http://b.onion/x", "http://a.onion/", "http://b.onion/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := Normalize(tt.raw, tt.base)
			if !ok {
				t.Fatalf("expected %q to normalize", tt.raw)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}

	t.Run("parse failure", func(t *testing.T) {
		t.Parallel()

		if _, ok := Normalize("http://[::1", ""); ok {
			t.Error("expected malformed URL to fail")
		}
		if _, ok := Normalize("page", "http://[::1"); ok {
			t.Error("expected malformed base to fail")
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		t.Parallel()

		once, _ := Normalize("http://a.onion/x/#f", "")
		twice, _ := Normalize(once, "")
		if once != twice {
			t.Errorf("expected %q, got %q", once, twice)
		}
	})
}

func TestExtractDomain(t *testing.T) {
	t.Parallel()

	if got, ok := ExtractDomain("http://Seed.onion:8080/a"); !ok || got != "seed.onion" {
		t.Errorf("expected seed.onion, got %q (%v)", got, ok)
	}
	if _, ok := ExtractDomain("/relative"); ok {
		t.Error("expected relative URL to have no domain")
	}
	if _, ok := ExtractDomain("http://[::1"); ok {
		t.Error("expected malformed URL to have no domain")
	}
}

func TestIsOnionURL(t *testing.T) {
	t.Parallel()

	if !IsOnionURL("http://seed.onion/a") {
		t.Error("expected onion URL")
	}
	if IsOnionURL("https://example.com/") {
		t.Error("expected clearnet URL to be rejected")
	}
	if IsOnionURL("http://onion.example.com/") {
		t.Error("expected onion subdomain of clearnet host to be rejected")
	}
}

func TestIsFollowableScheme(t *testing.T) {
	t.Parallel()

	for _, ref := range []string{"", "#top", "javascript:void(0)", "MAILTO:a@b", "tel:123", "data:text/plain,hi"} {
		if IsFollowableScheme(ref) {
			t.Errorf("expected %q to be rejected", ref)
		}
	}
	for _, ref := range []string{"/a", "b.html", "http://a.onion/"} {
		if !IsFollowableScheme(ref) {
			t.Errorf("expected %q to be accepted", ref)
		}
	}
}

func TestFilter(t *testing.T) {
	t.Parallel()

	links := []string{
		"http://seed.onion/a",
		"http://other.onion/b",
		"https://clearnet.com/c",
		"http://third.onion/d",
	}

	tests := []struct {
		name   string
		policy Policy
		want   []string
	}{
		{
			name:   "external onion followed",
			policy: Policy{FollowExternalOnion: true, StartDomain: "seed.onion"},
			want:   []string{"http://seed.onion/a", "http://other.onion/b", "http://third.onion/d"},
		},
		{
			name:   "same domain only",
			policy: Policy{FollowExternalOnion: false, StartDomain: "seed.onion"},
			want:   []string{"http://seed.onion/a"},
		},
		{
			name:   "allowed domains",
			policy: Policy{FollowExternalOnion: true, StartDomain: "seed.onion", AllowedDomains: []string{"other.onion"}},
			want:   []string{"http://other.onion/b"},
		},
		{
			name:   "allowed domains and same domain conjunctive",
			policy: Policy{FollowExternalOnion: false, StartDomain: "seed.onion", AllowedDomains: []string{"other.onion"}},
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Filter(links, tt.policy)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
