package usecase

import (
	"context"
	"testing"

	"github.com/kirillkom/backlog-assistant/internal/core/domain"
)

func TestRouteByRuleSkipsClassifier(t *testing.T) {
	classifier := &classifierFake{label: domain.IntentLabel{Intent: domain.IntentDetail, Confidence: 0.99}}
	router := NewRouter(classifier, 0.6, testLogger())

	cases := []struct {
		query string
		want  domain.Intent
	}{
		{"how many completed tasks in sprint 3", domain.IntentCount},
		{"are there any blocked tasks", domain.IntentCount},
		{"summarize sprint 3", domain.IntentReport},
		{"compare sprint 2 and sprint 3", domain.IntentCompare},
		{"tell me about the login task", domain.IntentDetail},
	}
	for _, tc := range cases {
		intent, via := router.Route(context.Background(), tc.query)
		if intent != tc.want || via != "rule" {
			t.Fatalf("%q routed to (%s, %s), want (%s, rule)", tc.query, intent, via, tc.want)
		}
	}
	if classifier.calls != 0 {
		t.Fatalf("classifier consulted %d times for rule-matched queries", classifier.calls)
	}
}

func TestRouteClassifierAcceptedAboveThreshold(t *testing.T) {
	classifier := &classifierFake{label: domain.IntentLabel{Intent: domain.IntentDetail, Confidence: 0.8}}
	router := NewRouter(classifier, 0.6, testLogger())

	intent, via := router.Route(context.Background(), "what changed with the checkout work")
	if intent != domain.IntentDetail || via != "classifier" {
		t.Fatalf("got (%s, %s), want (detail, classifier)", intent, via)
	}
}

func TestRouteLowConfidenceDefaultsToRetrieve(t *testing.T) {
	classifier := &classifierFake{label: domain.IntentLabel{Intent: domain.IntentCount, Confidence: 0.4}}
	router := NewRouter(classifier, 0.6, testLogger())

	intent, via := router.Route(context.Background(), "what changed with the checkout work")
	if intent != domain.IntentRetrieve || via != "default" {
		t.Fatalf("got (%s, %s), want (retrieve, default)", intent, via)
	}
}

func TestRouteClassifierErrorDefaultsToRetrieve(t *testing.T) {
	classifier := &classifierFake{err: errFakeDown}
	router := NewRouter(classifier, 0.6, testLogger())

	intent, via := router.Route(context.Background(), "what changed with the checkout work")
	if intent != domain.IntentRetrieve || via != "default" {
		t.Fatalf("got (%s, %s), want (retrieve, default)", intent, via)
	}
}

func TestRouteUnknownLabelDefaultsToRetrieve(t *testing.T) {
	classifier := &classifierFake{label: domain.IntentLabel{Intent: "banter", Confidence: 0.95}}
	router := NewRouter(classifier, 0.6, testLogger())

	intent, _ := router.Route(context.Background(), "what changed with the checkout work")
	if intent != domain.IntentRetrieve {
		t.Fatalf("unknown classifier label must default to retrieve, got %s", intent)
	}
}

func TestCountPlanManualWhenFilterPresent(t *testing.T) {
	router := NewRouter(nil, 0.6, testLogger())
	plan := router.CountPlan("how many sprints have completed tasks", domain.Filter{Status: domain.StatusDone})
	if plan.Delegated {
		t.Fatalf("extracted filter must force the manual path")
	}
}

func TestCountPlanDelegatesDistinctValueQuestions(t *testing.T) {
	router := NewRouter(nil, 0.6, testLogger())

	cases := []struct {
		query string
		want  domain.GroupAttribute
	}{
		{"how many sprints are there", domain.GroupByIteration},
		{"how many people are working on this", domain.GroupByAssignee},
		{"how many labels do we use", domain.GroupByLabel},
	}
	for _, tc := range cases {
		plan := router.CountPlan(tc.query, domain.Filter{})
		if !plan.Delegated || plan.Attribute != tc.want {
			t.Fatalf("%q: plan = %+v, want delegated %s", tc.query, plan, tc.want)
		}
	}
}

func TestCountPlanExistence(t *testing.T) {
	router := NewRouter(nil, 0.6, testLogger())
	plan := router.CountPlan("are there any blocked tasks", domain.Filter{Blocked: domain.BoolPtr(true)})
	if !plan.Existence || plan.Delegated {
		t.Fatalf("existence question misplanned: %+v", plan)
	}
}
