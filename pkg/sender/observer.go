package sender

import (
	"sync"
	"time"
)

type EventKind int

const (
	EventStartTransfer EventKind = iota
	EventPayloadGenerated
	EventPayloadSent
	EventStopTransfer
)

func (k EventKind) String() string {
	switch k {
	case EventStartTransfer:
		return "StartTransfer"
	case EventPayloadGenerated:
		return "PayloadGenerated"
	case EventPayloadSent:
		return "PayloadSent"
	case EventStopTransfer:
		return "StopTransfer"
	default:
		return "Unknown"
	}
}

type Event struct {
	Kind EventKind
	// Iteration 从 0 开始；Start/Stop 事件为 -1
	Iteration int
	Rank      int
	BytesUsed int
	// Err 仅 EventStopTransfer 携带，正常结束为 nil
	Err error
}

// 任何实现该接口的类型都可以订阅 Sender 的事件
type Subscriber interface {
	OnSenderEvent(evt Event, now time.Time)
}

type ObserverList struct {
	mu          sync.RWMutex
	subscribers []Subscriber
}

// NewObserverList 创建一个空的订阅列表, 返回指针
func NewObserverList() *ObserverList {
	return &ObserverList{
		subscribers: make([]Subscriber, 0),
	}
}

// Subscribe 添加订阅者
func (o *ObserverList) Subscribe(s Subscriber) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.subscribers = append(o.subscribers, s)
}

// Unsubscribe 移除订阅者
func (o *ObserverList) Unsubscribe(s Subscriber) {
	o.mu.Lock()
	defer o.mu.Unlock()
	newSubs := make([]Subscriber, 0, len(o.subscribers))
	for _, sub := range o.subscribers {
		if sub != s { // Go 接口比较，直接判断是否同一对象
			newSubs = append(newSubs, sub)
		}
	}
	o.subscribers = newSubs
}

// Dispatch 派发事件，同步调用每个订阅者；回调时不持锁，订阅者可在回调中退订
func (o *ObserverList) Dispatch(evt Event, now time.Time) {
	o.mu.RLock()
	subs := append([]Subscriber(nil), o.subscribers...)
	o.mu.RUnlock()
	for _, sub := range subs {
		sub.OnSenderEvent(evt, now)
	}
}

func (o *ObserverList) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.subscribers)
}
