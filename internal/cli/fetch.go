package cli

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	app "github.com/civiclens/billhub/internal/app"
	"github.com/civiclens/billhub/internal/config"
	"github.com/civiclens/billhub/internal/domain/query"
	"github.com/civiclens/billhub/pkg/logger"
)

var (
	fetchSource string
	fetchZip    string
	fetchRep    string
	fetchTopic  string
	fetchStatus string
	fetchLimit  int
	fetchOffset int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Run one aggregation query and print the result as JSON",
	Long: "fetch runs a single bill query against the configured providers and\n" +
		"prints the merged result to stdout, bypassing the HTTP surface.",
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchSource, "source", "", "restrict to one provider (federal or state)")
	fetchCmd.Flags().StringVar(&fetchZip, "zip", "", "scope to a constituency zip code")
	fetchCmd.Flags().StringVar(&fetchRep, "rep", "", "scope to a representative id")
	fetchCmd.Flags().StringVar(&fetchTopic, "topic", "", "filter by subject")
	fetchCmd.Flags().StringVar(&fetchStatus, "status", "", "filter by lifecycle stage")
	fetchCmd.Flags().IntVar(&fetchLimit, "limit", 0, "page size")
	fetchCmd.Flags().IntVar(&fetchOffset, "offset", 0, "page offset")
}

func runFetch(cmd *cobra.Command, _ []string) error {
	if err := logger.Init(); err != nil {
		return err
	}
	// Keep the one-shot output parseable; diagnostics stay on warn+.
	_ = logger.SetLevelString("warn")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, resolveConfigPath())
	if err != nil {
		return err
	}

	q, err := query.Parse(query.Params{
		Source:           fetchSource,
		ZipCode:          fetchZip,
		RepresentativeID: fetchRep,
		Topic:            fetchTopic,
		Status:           fetchStatus,
		Limit:            intParam(fetchLimit),
		Offset:           intParam(fetchOffset),
	})
	if err != nil {
		return err
	}

	svc := app.New(cfg)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	reply, err := svc.Query(ctx, q, "")
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(reply.Result)
}

func intParam(v int) string {
	if v <= 0 {
		return ""
	}
	return strconv.Itoa(v)
}
