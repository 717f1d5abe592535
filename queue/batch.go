// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package queue

// MessageBatch is the unit of delivery to a consumer: the messages of one
// flush, in send order.
type MessageBatch struct {
	queueName string
	messages  []*Message
}

// QueueName returns the name of the queue the batch was flushed from.
func (b *MessageBatch) QueueName() string {
	return b.queueName
}

// Messages returns the messages of the batch in send order.
func (b *MessageBatch) Messages() []*Message {
	return b.messages
}

// Len returns the number of messages in the batch.
func (b *MessageBatch) Len() int {
	return len(b.messages)
}

// RetryAll marks every message in the batch for redelivery.
func (b *MessageBatch) RetryAll() {
	for _, message := range b.messages {
		message.Retry()
	}
}
