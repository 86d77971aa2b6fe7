// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package patterns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noldarim/opsdash/internal/pipeobs/types"
)

// recorder is an Accumulator that keeps everything it is given.
type recorder struct {
	steps  []types.Step
	errors []string
	images []string
	failed bool
}

func (r *recorder) AddStep(step types.Step) { r.steps = append(r.steps, step) }
func (r *recorder) AddError(msg string)     { r.errors = append(r.errors, msg) }
func (r *recorder) AddImage(ref string)     { r.images = append(r.images, ref) }
func (r *recorder) MarkFailed()             { r.failed = true }

func TestDefaultCatalog_Match(t *testing.T) {
	tests := []struct {
		command string
		want    string
	}{
		{"which kubectl", RuleToolCheck},
		{"docker --version", RuleToolCheck},
		{"docker-compose version", RuleToolCheck},
		{"git clone https://x/repo.git /srv/app", RuleSourceCheckout},
		{"cd /srv/app && git pull origin main", RuleSourceCheckout},
		{"git -c http.sslVerify=false fetch --all", RuleSourceCheckout},
		{"docker login -u ci registry.example.com", RuleRegistryLogin},
		{"sed -i 's/app:1.0/app:1.1/' docker-compose.yml", RuleComposeEdit},
		{"yq -i '.services.web.image = \"app:2\"' compose.yaml", RuleComposeEdit},
		{"docker pull nginx:1.25", RuleImagePull},
		{"docker-compose -f docker-compose.yml pull", RuleImagePull},
		{"docker compose up -d", RuleContainerUp},
		{"docker compose -f docker-compose.yml up -d 2>&1", RuleContainerUp},
		{"docker-compose -f docker-compose.yml up -d >/dev/null 2>&1", RuleContainerUp},
		{"docker compose -f docker-compose.yml pull 2>&1", RuleImagePull},
		{"base64 -d compose.b64 > docker-compose.yml", RuleComposeEdit},
		{"curl -fsSL https://example.com/shop/compose.yaml >> /srv/app/compose.yaml", RuleComposeEdit},
		{"docker-compose up -d --remove-orphans", RuleContainerUp},
		{"docker-compose down", RuleContainerDown},
		{"docker rm -f web", RuleContainerDown},
		{"docker-compose restart web", RuleContainerRestart},
		{"docker restart web", RuleContainerRestart},
		{"docker-compose ps", RuleStatusPoll},
		{"kubectl get pods -n shop", RuleStatusPoll},
		{"kubectl rollout status deployment/web -n shop", RuleStatusPoll},
		{"kubectl create namespace shop", RuleNamespaceCreate},
		{"kubectl create ns shop", RuleNamespaceCreate},
		{"kubectl create secret docker-registry regcred --docker-server=r.io -n shop", RuleRegistrySecret},
		{"kubectl apply -f /tmp/deploy-123/ -n shop", RuleManifestApply},
		{"kubectl apply -f $TMPDIR/manifests", RuleManifestApply},
		{"kubectl describe pod web-5d9c -n shop", RulePodDescribe},
		{"kubectl rollout restart deployment/web -n shop", RuleRolloutRestart},
		{"rm -rf /tmp/deploy-123", RuleCleanup},
		{"docker image prune -f", RuleCleanup},
		{"cat /tmp/deploy-123/deployment.yaml", RuleManifestDump},
	}

	catalog := Default()
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			rule, ok := catalog.Match(types.LogEntry{Command: tt.command})
			require.True(t, ok, "expected a rule to match")
			assert.Equal(t, tt.want, rule.Name)
		})
	}
}

func TestDefaultCatalog_NoMatch(t *testing.T) {
	for _, cmd := range []string{"", "echo hello", "uptime", "kubectl apply -f ./k8s/", "cat /etc/hosts"} {
		_, ok := Default().Match(types.LogEntry{Command: cmd})
		assert.False(t, ok, "command %q should not match", cmd)
	}
}

func TestIsInertRead(t *testing.T) {
	tests := []struct {
		command string
		want    bool
	}{
		{"cat /etc/app/config.yaml", true},
		{"cd /srv/app && cat docker-compose.yml", true},
		{"sudo tail -n 50 /var/log/app.log", true},
		{"/bin/cat values.yaml | grep timeout", true},
		{"LANG=C grep -i timeout app.conf", true},
		{"docker-compose restart web", false},
		{"cat x.yaml | kubectl apply -f -", false},
		{"cd /srv/app", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			assert.Equal(t, tt.want, IsInertRead(tt.command))
		})
	}
}

func TestSplitImage(t *testing.T) {
	tests := []struct {
		ref  string
		want types.ImageRef
	}{
		{"nginx:1.25", types.ImageRef{Name: "nginx", Tag: "1.25", FullPath: "nginx:1.25"}},
		{"registry.io:5000/team/app:v2", types.ImageRef{Name: "registry.io:5000/team/app", Tag: "v2", FullPath: "registry.io:5000/team/app:v2"}},
		{"registry.io:5000/team/app", types.ImageRef{Name: "registry.io:5000/team/app", Tag: "latest", FullPath: "registry.io:5000/team/app"}},
		{"redis", types.ImageRef{Name: "redis", Tag: "latest", FullPath: "redis"}},
		{"app@sha256:abc", types.ImageRef{Name: "app", Tag: "sha256:abc", FullPath: "app@sha256:abc"}},
		{"registry.example.com:5000/shop/web@sha256:abc", types.ImageRef{
			Name: "registry.example.com:5000/shop/web", Tag: "sha256:abc", FullPath: "registry.example.com:5000/shop/web@sha256:abc",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitImage(tt.ref))
		})
	}
}

func TestScanImages(t *testing.T) {
	manifest := `apiVersion: apps/v1
kind: Deployment
spec:
  template:
    spec:
      containers:
        - name: web
          image: "registry.io/shop/web:1.4.2"
        - name: sidecar
          image: envoy:v1.29 # proxy
`
	assert.Equal(t, []string{"registry.io/shop/web:1.4.2", "envoy:v1.29"}, ScanImages(manifest))

	describe := `Containers:
  web:
    Image:          registry.io/shop/web:1.4.2
    Image ID:       docker-pullable://registry.io/shop/web@sha256:deadbeef
`
	assert.Equal(t, []string{"registry.io/shop/web:1.4.2"}, ScanImages(describe))
	assert.Empty(t, ScanImages("no images here"))
}

func TestNamespaceFromCommand(t *testing.T) {
	tests := []struct {
		command string
		want    string
		ok      bool
	}{
		{"kubectl create namespace shop", "shop", true},
		{"kubectl create ns shop-staging", "shop-staging", true},
		{"kubectl apply -f /tmp/x -n shop", "shop", true},
		{"kubectl get pods --namespace=payments", "payments", true},
		{"helm upgrade web ./chart --namespace prod", "prod", true},
		{"docker-compose up -d", "", false},
		{"kubectl get nodes", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			got, ok := NamespaceFromCommand(tt.command)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandlers(t *testing.T) {
	catalog := Default()
	rule := func(name string) Rule {
		r, ok := catalog.Rule(name)
		require.True(t, ok, name)
		return r
	}

	t.Run("generic success", func(t *testing.T) {
		rec := &recorder{}
		rule(RuleImagePull).Handle(types.LogEntry{Command: "docker pull nginx", Timestamp: "2025-01-15T10:30:00Z"}, rec)
		require.Len(t, rec.steps, 1)
		assert.Equal(t, "Pull images", rec.steps[0].Name)
		assert.Equal(t, types.StepStatusSuccess, rec.steps[0].Status)
		assert.Nil(t, rec.steps[0].Message)
		require.NotNil(t, rec.steps[0].Timestamp)
		assert.Equal(t, "2025-01-15T10:30:00Z", *rec.steps[0].Timestamp)
		assert.Empty(t, rec.errors)
	})

	t.Run("critical failure records error", func(t *testing.T) {
		rec := &recorder{}
		rule(RuleImagePull).Handle(types.LogEntry{
			Command:  "docker pull nginx:nope",
			Error:    "manifest for nginx:nope not found\nmore detail",
			ExitCode: 1,
		}, rec)
		require.Len(t, rec.steps, 1)
		assert.Equal(t, types.StepStatusFailed, rec.steps[0].Status)
		assert.Equal(t, "manifest for nginx:nope not found", *rec.steps[0].Message)
		assert.Equal(t, []string{"Pull images: manifest for nginx:nope not found"}, rec.errors)
		assert.False(t, rec.failed)
	})

	t.Run("non-critical failure records no error", func(t *testing.T) {
		rec := &recorder{}
		rule(RuleToolCheck).Handle(types.LogEntry{Command: "which helm", ExitCode: 1}, rec)
		require.Len(t, rec.steps, 1)
		assert.Equal(t, types.StepStatusFailed, rec.steps[0].Status)
		assert.Empty(t, rec.errors)
	})

	t.Run("already exists is success", func(t *testing.T) {
		rec := &recorder{}
		rule(RuleNamespaceCreate).Handle(types.LogEntry{
			Command:  "kubectl create namespace shop",
			Error:    `Error from server (AlreadyExists): namespaces "shop" already exists`,
			ExitCode: 1,
		}, rec)
		require.Len(t, rec.steps, 1)
		assert.Equal(t, types.StepStatusSuccess, rec.steps[0].Status)
		assert.Contains(t, *rec.steps[0].Message, "already exists")
		assert.Empty(t, rec.errors)
	})

	t.Run("manifest apply failure is verbatim and fatal", func(t *testing.T) {
		rec := &recorder{}
		errText := "error: error validating \"/tmp/d/deploy.yaml\": unknown field \"replica\"\nsecond line"
		rule(RuleManifestApply).Handle(types.LogEntry{
			Command:  "kubectl apply -f /tmp/d/",
			Error:    errText,
			ExitCode: 1,
		}, rec)
		assert.True(t, rec.failed)
		assert.Equal(t, []string{errText}, rec.errors)
		require.Len(t, rec.steps, 1)
		assert.Equal(t, types.StepStatusFailed, rec.steps[0].Status)
	})

	t.Run("pod describe scans images", func(t *testing.T) {
		rec := &recorder{}
		rule(RulePodDescribe).Handle(types.LogEntry{
			Command: "kubectl describe pod web",
			Output:  "    Image:   shop/web:3\n",
		}, rec)
		require.Len(t, rec.steps, 1)
		assert.Equal(t, []string{"shop/web:3"}, rec.images)
	})

	t.Run("manifest dump adds images only", func(t *testing.T) {
		rec := &recorder{}
		rule(RuleManifestDump).Handle(types.LogEntry{
			Command: "cat /tmp/d/deploy.yaml",
			Output:  "image: shop/web:3\n",
		}, rec)
		assert.Empty(t, rec.steps)
		assert.Equal(t, []string{"shop/web:3"}, rec.images)
	})

	t.Run("failed manifest dump is a failed step", func(t *testing.T) {
		rec := &recorder{}
		rule(RuleManifestDump).Handle(types.LogEntry{
			Command:  "cat /tmp/d/deploy.yaml",
			Error:    "cat: /tmp/d/deploy.yaml: No such file or directory",
			ExitCode: 1,
		}, rec)
		require.Len(t, rec.steps, 1)
		assert.Equal(t, types.StepStatusFailed, rec.steps[0].Status)
		assert.Empty(t, rec.images)
		assert.Empty(t, rec.errors)
	})

	t.Run("status poll waiting is in progress", func(t *testing.T) {
		rec := &recorder{}
		rule(RuleStatusPoll).Handle(types.LogEntry{
			Command: "kubectl rollout status deployment/web",
			Output:  "Waiting for deployment \"web\" rollout to finish: 1 of 3 updated replicas are available...",
		}, rec)
		require.Len(t, rec.steps, 1)
		assert.Equal(t, types.StepStatusInProgress, rec.steps[0].Status)
	})

	t.Run("status poll verdict comes from the last line", func(t *testing.T) {
		tests := []struct {
			name    string
			output  string
			want    types.StepStatus
			message string
		}{
			{
				name:   "rollout finished",
				output: "Waiting for deployment \"web\" rollout to finish: 0 of 1 updated replicas are available...\ndeployment \"web\" successfully rolled out\n",
				want:   types.StepStatusSuccess,
			},
			{
				name:    "rollout still waiting",
				output:  "Waiting for deployment \"web\" rollout to finish: 0 of 2 updated replicas are available...\nWaiting for deployment \"web\" rollout to finish: 1 of 2 updated replicas are available...",
				want:    types.StepStatusInProgress,
				message: "Waiting for deployment \"web\" rollout to finish: 1 of 2 updated replicas are available...",
			},
			{
				name:    "compose health starting",
				output:  "NAME      IMAGE   STATUS\nshop-web  app:2   Up 3 seconds (health: starting)",
				want:    types.StepStatusInProgress,
				message: "shop-web  app:2   Up 3 seconds (health: starting)",
			},
			{
				name:   "compose healthy",
				output: "NAME      IMAGE   STATUS\nshop-web  app:2   Up 40 seconds (healthy)\n",
				want:   types.StepStatusSuccess,
			},
			{
				name:   "no output",
				output: "",
				want:   types.StepStatusSuccess,
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := &recorder{}
				rule(RuleStatusPoll).Handle(types.LogEntry{Command: "kubectl rollout status deployment/web", Output: tt.output}, rec)
				require.Len(t, rec.steps, 1)
				assert.Equal(t, tt.want, rec.steps[0].Status)
				if tt.message == "" {
					assert.Nil(t, rec.steps[0].Message)
				} else {
					require.NotNil(t, rec.steps[0].Message)
					assert.Equal(t, tt.message, *rec.steps[0].Message)
				}
			})
		}
	})

	t.Run("cleanup failure is skipped", func(t *testing.T) {
		rec := &recorder{}
		rule(RuleCleanup).Handle(types.LogEntry{Command: "rm -rf /tmp/d", Error: "permission denied", ExitCode: 1}, rec)
		require.Len(t, rec.steps, 1)
		assert.Equal(t, types.StepStatusSkipped, rec.steps[0].Status)
		assert.Equal(t, "permission denied", *rec.steps[0].Message)
		assert.Empty(t, rec.errors)
	})
}
