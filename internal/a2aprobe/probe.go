package a2aprobe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2aclient"
	"github.com/a2aproject/a2a-go/a2aclient/agentcard"
	"go.uber.org/zap"

	"github.com/saop-labs/saop/internal/logging"
)

// DefaultMessage is sent when the caller provides none.
const DefaultMessage = "What is 1928 + 2938?"

// DefaultTimeout bounds the whole probe, card resolution included.
const DefaultTimeout = 30 * time.Second

// Reply is the agent's answer to a probe.
type Reply struct {
	Agent   string
	TaskID  string
	State   string
	Text    string
	Elapsed time.Duration
}

// Prober talks to agents through a2a-go.
type Prober struct {
	Timeout time.Duration
	Logger  *zap.Logger
}

// Ping resolves the agent card published at baseURL and sends text as a
// user message.
func (p *Prober) Ping(ctx context.Context, baseURL, text string) (*Reply, error) {
	log := logging.OrNop(p.Logger)
	if text == "" {
		text = DefaultMessage
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	card, err := agentcard.DefaultResolver.Resolve(ctx, strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("resolving agent card at %s: %w", baseURL, err)
	}
	log.Debug("agent card resolved", zap.String("agent", card.Name), zap.String("url", card.URL))

	client, err := a2aclient.NewFromCard(ctx, card)
	if err != nil {
		return nil, fmt.Errorf("creating a2a client: %w", err)
	}
	defer func() { _ = client.Destroy() }()

	msg := a2a.NewMessage(a2a.MessageRoleUser, a2a.TextPart{Text: text})
	result, err := client.SendMessage(ctx, &a2a.MessageSendParams{Message: msg})
	if err != nil {
		return nil, fmt.Errorf("sending message to %s: %w", card.Name, err)
	}

	reply := Extract(result)
	reply.Agent = card.Name
	reply.Elapsed = time.Since(start)
	log.Debug("agent replied",
		zap.String("task", reply.TaskID),
		zap.String("state", reply.State),
		zap.Duration("elapsed", reply.Elapsed),
	)
	return reply, nil
}

// Extract collects the text of a send result: artifacts then status message
// for a task, parts for a direct message.
func Extract(result a2a.SendMessageResult) *Reply {
	reply := &Reply{}
	var parts []a2a.Part

	switch v := result.(type) {
	case *a2a.Task:
		reply.TaskID = string(v.ID)
		reply.State = string(v.Status.State)
		for _, artifact := range v.Artifacts {
			parts = append(parts, artifact.Parts...)
		}
		if v.Status.Message != nil {
			parts = append(parts, v.Status.Message.Parts...)
		}
	case *a2a.Message:
		parts = append(parts, v.Parts...)
	}

	reply.Text = joinText(parts)
	return reply
}

func joinText(parts []a2a.Part) string {
	var texts []string
	for _, part := range parts {
		switch tp := part.(type) {
		case a2a.TextPart:
			texts = append(texts, tp.Text)
		case *a2a.TextPart:
			texts = append(texts, tp.Text)
		}
	}
	return strings.TrimSpace(strings.Join(texts, "\n"))
}
