package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ashureev/dsa-drill/internal/domain"
	"github.com/ashureev/dsa-drill/internal/store"
)

// rerankCmd re-derives every stored rank from xp
var rerankCmd = &cobra.Command{
	Use:   "rerank",
	Short: "Recompute every agent's rank from XP",
	Long: `Re-derive the stored rank of every agent from its XP using the
current rank ladder. Safe to run repeatedly.`,
	Args: cobra.NoArgs,
	RunE: runRerank,
}

// agentCmd groups agent inspection commands
var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Inspect agents",
}

// agentShowCmd prints one agent
var agentShowCmd = &cobra.Command{
	Use:   "show <telegram-user-id>",
	Short: "Show one agent's XP, rank and mission",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentShow,
}

func openStore() (*store.SQLiteStore, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	return repo, nil
}

func runRerank(cmd *cobra.Command, _ []string) error {
	repo, err := openStore()
	if err != nil {
		return err
	}
	defer repo.Close()

	n, err := repo.RecomputeRanks(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated %d agent(s)\n", n)
	return nil
}

func runAgentShow(cmd *cobra.Command, args []string) error {
	id, err := parseAgentID(args[0])
	if err != nil {
		return err
	}
	repo, err := openStore()
	if err != nil {
		return err
	}
	defer repo.Close()

	agent, err := repo.GetAgent(cmd.Context(), id)
	if err != nil {
		return err
	}
	if agent == nil {
		return fmt.Errorf("agent %d: %w", id, store.ErrAgentNotFound)
	}
	fmt.Fprint(cmd.OutOrStdout(), formatAgent(agent))
	return nil
}

func formatAgent(a *domain.Agent) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "ID:      %d\n", a.ID)
	fmt.Fprintf(&sb, "Name:    %s\n", a.DisplayName)
	fmt.Fprintf(&sb, "XP:      %d\n", a.XP)
	fmt.Fprintf(&sb, "Rank:    %s\n", a.Rank)
	switch s := a.State().(type) {
	case domain.MissionOpen:
		fmt.Fprintf(&sb, "Mission: open (%d chars)\n", len(s.Problem))
	case domain.NoMission:
		sb.WriteString("Mission: none\n")
	}
	fmt.Fprintf(&sb, "Updated: %s\n", a.UpdatedAt.UTC().Format("2006-01-02 15:04:05"))
	return sb.String()
}
