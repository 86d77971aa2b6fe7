// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package testutil

import (
	"time"

	"github.com/noldarim/opsdash/internal/pipeobs/types"
)

// Sample data creators for consistent testing

// ComposeDeployment returns a successful docker-compose deployment transcript
func ComposeDeployment() []types.LogEntry {
	return []types.LogEntry{
		Entry(At(0), "docker-compose version", "Docker Compose version v2.24.5"),
		Entry(At(2*time.Second), "git clone https://git.example.com/shop/web.git /srv/web", "Cloning into '/srv/web'..."),
		Entry(At(5*time.Second), "docker login -u ci registry.example.com", "Login Succeeded"),
		Entry(At(8*time.Second), "sed -i 's|web:1.4.1|web:1.4.2|' /srv/web/docker-compose.yml", ""),
		Entry(At(20*time.Second), "docker-compose -f /srv/web/docker-compose.yml pull", "Pulling web ... done"),
		Entry(At(35*time.Second), "docker-compose -f /srv/web/docker-compose.yml up -d", "Container web-1 Started"),
		Entry(At(42*time.Second), "docker-compose -f /srv/web/docker-compose.yml ps", "web-1   running   0.0.0.0:8080->80/tcp"),
	}
}

// KubernetesDeployment returns a successful kubectl deployment transcript into namespace
// "shop" that runs image registry.example.com:5000/shop/web:1.4.2.
func KubernetesDeployment() []types.LogEntry {
	return []types.LogEntry{
		Entry(At(0), "kubectl version --client", "Client Version: v1.29.2"),
		types.LogEntry{
			Timestamp: At(3 * time.Second),
			Command:   "kubectl create namespace shop",
			Error:     `Error from server (AlreadyExists): namespaces "shop" already exists`,
			ExitCode:  1,
		},
		Entry(At(5*time.Second),
			"kubectl create secret docker-registry regcred --docker-server=registry.example.com:5000 -n shop",
			"secret/regcred created"),
		Entry(At(9*time.Second), "cat /tmp/deploy-7f3a/deployment.yaml",
			"apiVersion: apps/v1\nkind: Deployment\nspec:\n  template:\n    spec:\n      containers:\n        - name: web\n          image: registry.example.com:5000/shop/web:1.4.2\n"),
		Entry(At(12*time.Second), "kubectl apply -f /tmp/deploy-7f3a/ -n shop",
			"deployment.apps/web configured\nservice/web unchanged"),
		Entry(At(40*time.Second), "kubectl rollout status deployment/web -n shop",
			"Waiting for deployment \"web\" rollout to finish: 0 of 1 updated replicas are available...\n"+
				"deployment \"web\" successfully rolled out\n"),
		Entry(At(44*time.Second), "rm -rf /tmp/deploy-7f3a", ""),
	}
}

// BuildHistory returns overlapping records for one build stage across two runs
func BuildHistory() []types.PipelineStepRecord {
	return []types.PipelineStepRecord{
		Record(1, "build", "success", At(0)),
		Record(2, "Build", "running", At(10*time.Minute)),
		Record(3, "build", "failed", At(5*time.Minute)),
	}
}

// DeployedPipeline returns records for a pipeline whose deploy stage succeeded and which has
// no operate records
func DeployedPipeline() []types.PipelineStepRecord {
	build := Record(10, "ci-build", "completed", At(0))
	build.CompletedAt = At(2 * time.Minute)
	deploy := Record(11, "deploy-production", "succeeded", At(3*time.Minute))
	deploy.CompletedAt = At(4 * time.Minute)
	deploy.DetailsData = map[string]any{"namespace": "shop"}
	return []types.PipelineStepRecord{build, deploy}
}
