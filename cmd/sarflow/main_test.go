package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"sarflow/internal/agents/agenttest"
	"sarflow/internal/pipeline"
	"sarflow/internal/platform/config"
	"sarflow/pkg/testutil"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func writeDataset(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "customers.csv",
		"customer_id,name,date_of_birth,ssn_last_4,address,customer_since,risk_rating\n"+
			"CUST_0001,Jane Doe,1980-04-12,1234,12 Harbor Rd,2015-09-01,High\n")
	writeFile(t, dir, "accounts.csv",
		"account_id,customer_id,account_type,opening_date,current_balance,average_monthly_balance,status\n"+
			"CUST_0001_ACC_1,CUST_0001,Checking,2015-09-01,15000,12000,Active\n")
	writeFile(t, dir, "transactions.csv",
		"transaction_id,account_id,transaction_date,transaction_type,amount,description,method\n"+
			"TXN_1,CUST_0001_ACC_1,2024-06-01,Cash_Deposit,9500,Cash deposit,Teller\n"+
			"TXN_2,CUST_0001_ACC_1,2024-06-03,Cash_Deposit,9800,Cash deposit,Teller\n")
	return dir
}

func writeScript(t *testing.T, replies ...string) string {
	t.Helper()
	raw, err := yaml.Marshal(map[string][]string{"replies": replies})
	require.NoError(t, err)
	return writeFile(t, t.TempDir(), "script.yaml", string(raw))
}

func scriptedEnv(t *testing.T, script, auditLog string) {
	t.Helper()
	t.Setenv("SARFLOW_LLM_PROVIDER", config.ProviderScripted)
	t.Setenv("SARFLOW_LLM_SCRIPT", script)
	t.Setenv("SARFLOW_AUDIT_LOG", auditLog)
	t.Setenv("SARFLOW_LOG_LEVEL", "error")
	t.Setenv("SARFLOW_CONFIG", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("KAFKA_BROKERS", "")
}

func TestRunCommand(t *testing.T) {
	testutil.Given(t, "one customer and scripted agent replies", func(t *testing.T) {
		auditLog := filepath.Join(t.TempDir(), "audit.jsonl")
		scriptedEnv(t, writeScript(t, agenttest.ClassificationJSON, agenttest.NarrativeJSON), auditLog)

		testutil.When(t, "the batch runs", func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			cmd := newRootCmd()
			cmd.SetOut(&stdout)
			cmd.SetErr(&stderr)
			cmd.SetArgs([]string{"run", "--data", writeDataset(t), "--workers", "1"})
			require.NoError(t, cmd.ExecuteContext(context.Background()))

			testutil.Then(t, "the report shows a completed case", func(t *testing.T) {
				var batch pipeline.BatchReport
				require.NoError(t, json.Unmarshal(stdout.Bytes(), &batch), stdout.String())
				require.Len(t, batch.Reports, 1)
				assert.Equal(t, "CUST_0001", batch.Reports[0].CustomerID)
				assert.Equal(t, pipeline.OutcomeCompleted, batch.Reports[0].Outcome)
				assert.Equal(t, 1, batch.Counts[pipeline.OutcomeCompleted])
			})

			testutil.Then(t, "the audit file holds one line per agent step", func(t *testing.T) {
				f, err := os.Open(auditLog)
				require.NoError(t, err)
				defer f.Close()
				lines := 0
				for sc := bufio.NewScanner(f); sc.Scan(); {
					lines++
				}
				assert.Equal(t, 3, lines)
			})
		})
	})
}

func TestRunCommandErrors(t *testing.T) {
	t.Run("missing data directory", func(t *testing.T) {
		scriptedEnv(t, writeScript(t), filepath.Join(t.TempDir(), "audit.jsonl"))
		cmd := newRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"run", "--data", filepath.Join(t.TempDir(), "nope")})
		assert.Error(t, cmd.ExecuteContext(context.Background()))
	})

	t.Run("scripted provider without a script", func(t *testing.T) {
		_, err := newGenerator(context.Background(), config.LLMConfig{Provider: config.ProviderScripted})
		assert.ErrorContains(t, err, "SARFLOW_LLM_SCRIPT")
	})
}
