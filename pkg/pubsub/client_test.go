package pubsub

import (
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	c := &Client{projectID: "shop-prod"}
	cases := map[string]string{
		"orders":                          "projects/shop-prod/topics/orders",
		"  orders  ":                      "projects/shop-prod/topics/orders",
		"projects/other/topics/order-evt": "projects/other/topics/order-evt",
		"":                                "",
	}
	for in, want := range cases {
		if got := c.topicResourceName(in); got != want {
			t.Fatalf("topicResourceName(%q) = %q, want %q", in, got, want)
		}
	}
	if got := (&Client{}).topicResourceName("orders"); got != "" {
		t.Fatalf("expected empty name without project, got %q", got)
	}
}

func TestTopicNamesSkipsBlank(t *testing.T) {
	if names := topicNames(config.PubSubConfig{OrdersTopic: " "}); len(names) != 0 {
		t.Fatalf("expected no topics, got %v", names)
	}
	names := topicNames(config.PubSubConfig{OrdersTopic: "orders"})
	if len(names) != 1 || names[0] != "orders" {
		t.Fatalf("unexpected topics %v", names)
	}
}

func TestClientOptionsUsesInlineCredentials(t *testing.T) {
	if opts := clientOptions(config.GCPConfig{ProjectID: "shop"}); len(opts) != 0 {
		t.Fatalf("expected default credentials, got %d options", len(opts))
	}
	if opts := clientOptions(config.GCPConfig{ProjectID: "shop", CredentialsJSON: `{"type":"service_account"}`}); len(opts) != 1 {
		t.Fatalf("expected one credentials option, got %d", len(opts))
	}
}
