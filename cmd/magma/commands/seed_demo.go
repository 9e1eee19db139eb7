package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var seedDemoServerURL string

var seedDemoCmd = &cobra.Command{
	Use:   "seed-demo",
	Short: "Load a small worked example into the four graphs of a running MAGMA server",
	Long: `seed-demo populates the semantic, entity, temporal and causal graphs
with a short incident narrative, so a fresh FalkorDB instance has enough
data to exercise every retrieval tool manually.`,
	RunE: runSeedDemo,
}

func init() {
	seedDemoCmd.Flags().StringVar(&seedDemoServerURL, "server", "http://localhost:8089", "base URL of a running MAGMA server")
}

func runSeedDemo(cmd *cobra.Command, args []string) error {
	if err := setupLog(logLevelFlags); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()

	client := newToolClient(seedDemoServerURL)

	fmt.Println("seeding demo data into", seedDemoServerURL)

	checkout, err := client.call(ctx, "add_entity", map[string]interface{}{
		"name": "checkout-service", "entity_type": "service",
	})
	if err != nil {
		return fmt.Errorf("add_entity checkout-service: %w", err)
	}
	checkoutID, _ := checkout["uuid"].(string)

	paymentsDB, err := client.call(ctx, "add_entity", map[string]interface{}{
		"name": "payments-db", "entity_type": "database",
	})
	if err != nil {
		return fmt.Errorf("add_entity payments-db: %w", err)
	}
	paymentsDBID, _ := paymentsDB["uuid"].(string)

	if _, err := client.call(ctx, "link_entities", map[string]interface{}{
		"source": checkoutID, "target": paymentsDBID, "relationship": "depends_on",
	}); err != nil {
		return fmt.Errorf("link_entities: %w", err)
	}

	if _, err := client.call(ctx, "remember", map[string]interface{}{
		"content": "checkout-service handles cart finalization and calls payments-db for the ledger write",
		"context": "architecture notes",
	}); err != nil {
		return fmt.Errorf("remember: %w", err)
	}

	now := time.Now().UTC()
	deployTime := now.Add(-2 * time.Hour).Format(time.RFC3339)
	outageTime := now.Add(-90 * time.Minute).Format(time.RFC3339)

	if _, err := client.call(ctx, "add_event", map[string]interface{}{
		"description": "deployed checkout-service v2.4.0",
		"occurred_at": deployTime,
		"entity_ids":  []interface{}{checkoutID},
	}); err != nil {
		return fmt.Errorf("add_event deploy: %w", err)
	}
	if _, err := client.call(ctx, "add_event", map[string]interface{}{
		"description": "payments-db connection pool exhausted",
		"occurred_at": outageTime,
		"entity_ids":  []interface{}{paymentsDBID},
	}); err != nil {
		return fmt.Errorf("add_event outage: %w", err)
	}

	if _, err := client.call(ctx, "add_fact", map[string]interface{}{
		"subject": "checkout-service", "predicate": "has_version", "object": "v2.4.0",
		"valid_from": deployTime,
	}); err != nil {
		return fmt.Errorf("add_fact: %w", err)
	}

	if _, err := client.call(ctx, "add_causal_link", map[string]interface{}{
		"cause":      "checkout-service v2.4.0 deploy raised connection pool size",
		"effect":     "payments-db connection pool exhausted",
		"confidence": 0.8,
		"evidence":   "pool size change shipped in the same release",
		"entities":   []interface{}{checkoutID, paymentsDBID},
	}); err != nil {
		return fmt.Errorf("add_causal_link: %w", err)
	}

	fmt.Println("demo data seeded. Try:")
	fmt.Println(`  magma query "why did payments-db run out of connections?" --intent WHY`)
	return nil
}
