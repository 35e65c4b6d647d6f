package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type mockSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (m *mockSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.inputs = append(m.inputs, params)
	return &sqs.SendMessageOutput{}, nil
}

func TestPublisherSend_SetsAttributes(t *testing.T) {
	mock := &mockSQS{}
	p := NewPublisher(mock, "https://sqs.local/queue")

	err := p.Send(context.Background(), `{"type":"order_placed"}`, map[string]string{
		"type":      "order_placed",
		"recipient": "",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(mock.inputs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(mock.inputs))
	}
	in := mock.inputs[0]
	if *in.QueueUrl != "https://sqs.local/queue" {
		t.Fatalf("queue url mismatch: %s", *in.QueueUrl)
	}
	if _, ok := in.MessageAttributes["recipient"]; ok {
		t.Fatalf("empty attribute should be skipped")
	}
	if v := in.MessageAttributes["type"].StringValue; v == nil || *v != "order_placed" {
		t.Fatalf("type attribute missing")
	}
}

func TestPublisherSend_Errors(t *testing.T) {
	p := NewPublisher(&mockSQS{}, "")
	if err := p.Send(context.Background(), "{}", nil); err == nil {
		t.Fatalf("expected error for missing queue url")
	}

	p = NewPublisher(&mockSQS{err: errors.New("boom")}, "q")
	if err := p.Send(context.Background(), "{}", nil); err == nil {
		t.Fatalf("expected send error")
	}
}
