package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/subwars/db"
	"github.com/kasuganosora/subwars/game/agent"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, db.ModeSQLite, cfg.Database.Mode)
	assert.Equal(t, time.Hour, cfg.Database.MySQLMaxLife)
	assert.Equal(t, 10*time.Millisecond, cfg.Sim.TickInterval())
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Journal.FlushInterval)

	def := agent.DefaultConfig()
	assert.Equal(t, def.Navigation, cfg.Agent.Navigation)
	assert.Equal(t, def.Intercept, cfg.Agent.Intercept)
	assert.Equal(t, def.Weapon, cfg.Agent.Weapon)
	assert.Equal(t, def.Scan, cfg.Agent.Scan)
	assert.Equal(t, def.Maneuver.AttackInterval, cfg.Agent.Maneuver.AttackInterval)
	assert.Len(t, cfg.Agent.Maneuver.Rules, len(def.Maneuver.Rules))
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
database:
  mode: memory
sim:
  tick_ms: 20
  sandbox:
    supplies:
      - [100, 0, 0]
  spawn:
    - profile: hunter
      position: [0, 0, 0]
    - profile: patrol
      position: [500, 0, 800]
agent:
  scan:
    lost_after: 3s
  maneuver:
    rules:
      Attack: "HasWeapons() && NearEnemy() && Speed < 20"
security:
  admin_key: secret
`))
	require.NoError(t, err)

	assert.Equal(t, db.ModeMemory, cfg.Database.Mode)
	assert.Equal(t, 20*time.Millisecond, cfg.Sim.TickInterval())
	require.Len(t, cfg.Sim.Spawn, 2)
	assert.Equal(t, "patrol", cfg.Sim.Spawn[1].Profile)
	assert.Equal(t, [3]float64{500, 0, 800}, cfg.Sim.Spawn[1].Position)
	assert.Equal(t, [][3]float64{{100, 0, 0}}, cfg.Sim.Sandbox.Supplies)
	assert.Equal(t, 3000.0, cfg.Sim.Sandbox.PassiveRange)
	assert.Equal(t, 3*time.Second, cfg.Agent.Scan.LostAfter)
	assert.Equal(t, "secret", cfg.Security.AdminKey)

	_, err = agent.ManeuverTable(cfg.Agent.Maneuver.Rules)
	require.NoError(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
