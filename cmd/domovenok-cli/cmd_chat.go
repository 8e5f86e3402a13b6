// Copyright (C) 2025 Domovenok AI (bots@domovenok.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// respondRequest is the payload for POST /v1/chat/respond.
type respondRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

// respondResponse mirrors the server's reply envelope.
type respondResponse struct {
	Replies []struct {
		Text  string `json:"text"`
		Promo bool   `json:"promo,omitempty"`
	} `json:"replies"`
}

// topicRequest is the payload for POST /v1/chat/session/topic.
type topicRequest struct {
	UserID string `json:"user_id"`
	Topic  string `json:"topic"`
}

// getServerBaseURL resolves the chat server address. DOMOVENOK_URL overrides
// the default local address.
func getServerBaseURL() string {
	if url := os.Getenv("DOMOVENOK_URL"); url != "" {
		return strings.TrimRight(url, "/")
	}
	return "http://localhost:8080"
}

func effectiveUserID() string {
	if userIDFlag != "" {
		return userIDFlag
	}
	return "cli-" + uuid.NewString()
}

func runAskCommand(_ *cobra.Command, args []string) {
	question := strings.Join(args, " ")
	replies, err := sendRespond(getServerBaseURL(), effectiveUserID(), question)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	printReplies(replies)
}

func runChatCommand(_ *cobra.Command, args []string) {
	if len(args) > 0 {
		fmt.Printf("Warning: Unexpected arguments ignored: %v\n", args)
		fmt.Println("Use 'domovenok-cli chat --help' to see available flags.")
	}

	baseURL := getServerBaseURL()
	userID := effectiveUserID()

	if topicFlag != "" {
		if err := sendTopic(baseURL, userID, topicFlag); err != nil {
			log.Fatalf("Failed to set topic: %v", err)
		}
		fmt.Printf("Topic set to %q\n", topicFlag)
	}

	fmt.Printf("Chatting as %s (type 'exit' to quit)\n", userID)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "exit" || text == "quit" || text == "q" {
			fmt.Println("Goodbye.")
			break
		}

		replies, err := sendRespond(baseURL, userID, text)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		printReplies(replies)
	}
}

func printReplies(resp *respondResponse) {
	for _, reply := range resp.Replies {
		if reply.Promo {
			fmt.Printf("[promo] %s\n", reply.Text)
			continue
		}
		fmt.Println(reply.Text)
	}
}

func sendRespond(baseURL, userID, text string) (*respondResponse, error) {
	payload, err := json.Marshal(respondRequest{UserID: userID, Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to create request body: %w", err)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Post(baseURL+"/v1/chat/respond", "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("chat server unavailable at %s: %w", baseURL, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read server response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var out respondResponse
	if err := json.Unmarshal(bodyBytes, &out); err != nil {
		return nil, fmt.Errorf("failed to parse server response: %w", err)
	}
	return &out, nil
}

func sendTopic(baseURL, userID, topic string) error {
	payload, err := json.Marshal(topicRequest{UserID: userID, Topic: topic})
	if err != nil {
		return fmt.Errorf("failed to create request body: %w", err)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Post(baseURL+"/v1/chat/session/topic", "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("chat server unavailable at %s: %w", baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
