// Submits a month of correction operations as one batch and polls the task
// until it finishes. Useful for exercising the async task surface locally.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

func main() {
	base := "http://localhost:8080/api/v1"

	// Build ten weekday corrections for the current month.
	type op struct {
		Kind   string `json:"kind"`
		Action string `json:"action"`
		Date   string `json:"date"`
		Time   string `json:"time"`
		Reason string `json:"reason"`
	}
	var ops []op
	day := time.Now().AddDate(0, 0, -14)
	for len(ops) < 10 {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			ops = append(ops, op{
				Kind:   "correction",
				Action: "checkin",
				Date:   day.Format("2006-01-02"),
				Time:   "09:00",
				Reason: "forgot to punch",
			})
		}
		day = day.AddDate(0, 0, 1)
	}

	payload, _ := json.Marshal(map[string]any{"operations": ops})
	resp, err := http.Post(base+"/batch", "application/json", bytes.NewReader(payload))
	if err != nil {
		fmt.Println("submit failed:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		fmt.Println("unexpected status:", resp.Status)
		os.Exit(1)
	}

	var accepted struct {
		TaskID string `json:"taskId"`
	}
	json.NewDecoder(resp.Body).Decode(&accepted)
	fmt.Println("Task accepted:", accepted.TaskID)

	for {
		time.Sleep(2 * time.Second)

		r, err := http.Get(base + "/batch/" + accepted.TaskID)
		if err != nil {
			fmt.Println("poll failed:", err)
			continue
		}
		var task struct {
			Status  string `json:"status"`
			Results []struct {
				Index    int    `json:"index"`
				Date     string `json:"date"`
				Success  bool   `json:"success"`
				TierUsed int    `json:"tierUsed"`
				Error    string `json:"error"`
			} `json:"results"`
		}
		json.NewDecoder(r.Body).Decode(&task)
		r.Body.Close()

		fmt.Println("Status:", task.Status)
		if task.Status != "RUNNING" {
			ok := 0
			for _, item := range task.Results {
				if item.Success {
					ok++
				} else {
					fmt.Printf("  item %d (%s) failed: %s\n", item.Index, item.Date, item.Error)
				}
			}
			fmt.Printf("Done: %d/%d succeeded\n", ok, len(task.Results))
			return
		}
	}
}
