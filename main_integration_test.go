//go:build integration

package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	testAppBinary       = "./planner_api_test_app"
	testOfflinePort     = "8089"
	testOfflineSvcPort  = "8091"
	testOnlinePort      = "8093"
	testOnlineSvcPort   = "8094"
	testWorkerSvcPort   = "8095"
	testDatabaseName    = "testdb_planner_integration"
	testNotifyRecipient = "owner@planners.example.com"
	startupTimeout      = 15 * time.Second
)

// TestMain builds the binary once; each test starts the processes it needs.
func TestMain(m *testing.M) {
	_ = godotenv.Load()

	log.Println("Integration Test Setup: Building application...")
	buildCmd := exec.Command("go", "build", "-o", testAppBinary, ".")
	if out, err := buildCmd.CombinedOutput(); err != nil {
		log.Printf("Failed to build application: %v\nOutput:\n%s", err, string(out))
		os.Exit(1)
	}

	exitCode := m.Run()
	_ = os.Remove(testAppBinary)
	os.Exit(exitCode)
}

// startApp runs the binary in mode with env on top of the current
// environment and stops it when the test ends.
func startApp(t *testing.T, mode string, env ...string) {
	t.Helper()
	cmd := exec.Command(testAppBinary, "-m", mode)
	cmd.Env = append(os.Environ(), append([]string{"GIN_MODE=release", "LOG_LEVEL=warn"}, env...)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	require.NoError(t, cmd.Start())

	t.Cleanup(func() {
		if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
			_ = cmd.Process.Kill()
		}
		_, _ = cmd.Process.Wait()
	})
}

func waitReady(t *testing.T, baseURL string) {
	t.Helper()
	deadline := time.Now().Add(startupTimeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(200 * time.Millisecond)
	}
	t.Fatalf("application at %s failed to start within %v", baseURL, startupTimeout)
}

func getJSON(t *testing.T, url string, out interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, json.Unmarshal(body, out), "body: %s", body)
	}
	return resp
}

func postJSON(t *testing.T, url, payload string, out interface{}) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewReader([]byte(payload)))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, json.Unmarshal(body, out), "body: %s", body)
	}
	return resp
}

// TestIntegration_Offline runs the API with no database configured.
func TestIntegration_Offline(t *testing.T) {
	baseURL := "http://localhost:" + testOfflinePort
	startApp(t, "api",
		"PORT="+testOfflinePort,
		"SERVICE_API_PORT="+testOfflineSvcPort,
		"DATABASE_URL=",
		"REDIS_ADDR=",
	)
	waitReady(t, baseURL)

	var planners []map[string]interface{}
	resp := getJSON(t, baseURL+"/api/planners", &planners)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, planners, 2)
	assert.Equal(t, "We Me Good Weddings", planners[0]["name"])
	assert.Equal(t, "EverAfter Collective", planners[1]["name"])

	var receipt map[string]interface{}
	resp = postJSON(t, baseURL+"/api/inquiries", `{"name":"Jordan","email":"jordan@example.com"}`, &receipt)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "demo-inquiry", receipt["id"])
	assert.Equal(t, "Stored in-memory for preview", receipt["note"])

	var diag map[string]interface{}
	getJSON(t, baseURL+"/test", &diag)
	assert.Equal(t, "Not Connected", diag["connection_status"])

	// Shut down through the service API.
	var shutdown map[string]interface{}
	resp = postJSON(t, "http://localhost:"+testOfflineSvcPort+"/api", `{"method":"shutdown"}`, &shutdown)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, shutdown["success"])
}

// TestIntegration_Online stores an inquiry in MongoDB and reads the queued
// notification back through the mock email sender.
func TestIntegration_Online(t *testing.T) {
	mongoURI := os.Getenv("MONGO_URI_TEST")
	redisAddr := os.Getenv("REDIS_ADDR_TEST")
	if mongoURI == "" || redisAddr == "" {
		t.Skip("MONGO_URI_TEST and REDIS_ADDR_TEST must be set for the online integration test")
	}

	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(ctx) })
	database := client.Database(testDatabaseName)
	require.NoError(t, database.Drop(ctx))
	t.Cleanup(func() { _ = database.Drop(ctx) })

	_, err = database.Collection("planner").InsertMany(ctx, []interface{}{
		bson.M{"name": "Harbor Lights Weddings", "location": "Portland, ME", "rating": 4.6},
		bson.M{"name": "Desert Bloom Events", "location": "Phoenix, AZ", "specialties": bson.A{"Boho"}},
	})
	require.NoError(t, err)

	env := []string{
		"DATABASE_URL=" + mongoURI,
		"DATABASE_NAME=" + testDatabaseName,
		"REDIS_ADDR=" + redisAddr,
		"MOCK_SERVICES=true",
		"INQUIRY_NOTIFY_TO=" + testNotifyRecipient,
	}
	baseURL := "http://localhost:" + testOnlinePort
	startApp(t, "api", append(env, "PORT="+testOnlinePort, "SERVICE_API_PORT="+testOnlineSvcPort)...)
	startApp(t, "bg", append(env, "SERVICE_API_PORT="+testWorkerSvcPort)...)
	waitReady(t, baseURL)

	var planners []map[string]interface{}
	resp := getJSON(t, baseURL+"/api/planners?limit=1", &planners)
	assert.Equal(t, "store", resp.Header.Get("X-Planner-Source"))
	require.Len(t, planners, 1)
	assert.Equal(t, "Harbor Lights Weddings", planners[0]["name"])
	assert.NotEmpty(t, planners[0]["id"])

	var receipt map[string]interface{}
	resp = postJSON(t, baseURL+"/api/inquiries", `{"name":"Jordan","email":"jordan@example.com","guest_count":90}`, &receipt)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEqual(t, "demo-inquiry", receipt["id"])
	assert.NotContains(t, receipt, "note")

	count, err := database.Collection("inquiry").CountDocuments(ctx, bson.M{"email": "jordan@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	var mail struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp = postJSON(t, "http://localhost:"+testOnlineSvcPort+"/api",
			`{"method":"getTestEmail","arguments":["`+testNotifyRecipient+`"]}`, &mail)
		if resp.StatusCode == http.StatusOK {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	require.True(t, mail.Success, "notification email never arrived")
	assert.Equal(t, "New inquiry from Jordan", mail.Data["subject"])
	assert.Contains(t, mail.Data["body"], "Guests:     90")
}
