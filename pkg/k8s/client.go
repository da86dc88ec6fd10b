package k8s

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"

	"github.com/mimir-aip/sentiment-go/pkg/models"
)

const (
	appLabel    = "sentiment-trainer"
	workDir     = "/app"
	storageName = "sentiment-storage"
)

// JobOptions configures the training Jobs created by the client
type JobOptions struct {
	Image          string
	StorageClaim   string // PVC mounted at /app, holding datasets and models
	ServiceAccount string
	CPURequest     string
	MemoryRequest  string
	CPULimit       string
	MemoryLimit    string
}

// Client provides Kubernetes API operations
type Client struct {
	clientset kubernetes.Interface
	namespace string
	opts      JobOptions
}

// NewClient creates a new Kubernetes client from in-cluster config or ~/.kube/config
func NewClient(namespace string, opts JobOptions) (*Client, error) {
	config, err := getKubeConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get kubernetes config: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes clientset: %w", err)
	}

	return NewClientWithClientset(clientset, namespace, opts), nil
}

// NewClientWithClientset wraps an existing clientset
func NewClientWithClientset(clientset kubernetes.Interface, namespace string, opts JobOptions) *Client {
	if namespace == "" {
		namespace = "default"
	}
	if opts.CPURequest == "" {
		opts.CPURequest = "500m"
	}
	if opts.MemoryRequest == "" {
		opts.MemoryRequest = "1Gi"
	}
	if opts.CPULimit == "" {
		opts.CPULimit = "2000m"
	}
	if opts.MemoryLimit == "" {
		opts.MemoryLimit = "4Gi"
	}
	if opts.StorageClaim == "" {
		opts.StorageClaim = storageName
	}
	return &Client{clientset: clientset, namespace: namespace, opts: opts}
}

// getKubeConfig returns the Kubernetes configuration
func getKubeConfig() (*rest.Config, error) {
	// Try in-cluster config first
	config, err := rest.InClusterConfig()
	if err == nil {
		return config, nil
	}

	// Fall back to kubeconfig file
	var kubeconfig string
	if home := homedir.HomeDir(); home != "" {
		kubeconfig = filepath.Join(home, ".kube", "config")
	}

	config, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		return nil, err
	}

	return config, nil
}

// JobName returns the Kubernetes Job name used for a work task
func JobName(task *models.WorkTask) string {
	return "train-" + strings.ToLower(task.ID)
}

// TrainArgs builds the `sentiment train` command line for a work task
func TrainArgs(task *models.WorkTask) []string {
	args := []string{
		"train", task.Spec.DatasetPath, task.Spec.OutputDir,
		"--models", strings.Join(task.Spec.ModelIDs, ","),
		"--random-seed", strconv.FormatInt(task.Spec.Seed, 10),
	}
	if task.RunID != "" {
		args = append(args, "--run-id", task.RunID)
	}
	return args
}

// CreateTrainingJob creates a Kubernetes Job running `sentiment train` for a work task
func (c *Client) CreateTrainingJob(ctx context.Context, task *models.WorkTask) (string, error) {
	if c.opts.Image == "" {
		return "", fmt.Errorf("trainer image is not configured")
	}
	jobName := JobName(task)

	labels := map[string]string{
		"app":           appLabel,
		"worktask-type": string(task.Type),
		"worktask-id":   task.ID,
	}

	envVars := []corev1.EnvVar{
		{Name: "WORKTASK_ID", Value: task.ID},
		{Name: "WORKTASK_TYPE", Value: string(task.Type)},
		{Name: "LOG_FORMAT", Value: "json"},
	}

	k8sJob := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      jobName,
			Namespace: c.namespace,
			Labels:    labels,
		},
		Spec: batchv1.JobSpec{
			BackoffLimit:            int32Ptr(0),
			TTLSecondsAfterFinished: int32Ptr(300),
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					ServiceAccountName: c.opts.ServiceAccount,
					Containers: []corev1.Container{
						{
							Name:            "trainer",
							Image:           c.opts.Image,
							ImagePullPolicy: corev1.PullIfNotPresent,
							Args:            TrainArgs(task),
							WorkingDir:      workDir,
							Env:             envVars,
							Resources: corev1.ResourceRequirements{
								Requests: corev1.ResourceList{
									corev1.ResourceCPU:    parseQuantity(c.opts.CPURequest),
									corev1.ResourceMemory: parseQuantity(c.opts.MemoryRequest),
								},
								Limits: corev1.ResourceList{
									corev1.ResourceCPU:    parseQuantity(c.opts.CPULimit),
									corev1.ResourceMemory: parseQuantity(c.opts.MemoryLimit),
								},
							},
							VolumeMounts: []corev1.VolumeMount{
								{Name: storageName, MountPath: workDir},
							},
						},
					},
					Volumes: []corev1.Volume{
						{
							Name: storageName,
							VolumeSource: corev1.VolumeSource{
								PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
									ClaimName: c.opts.StorageClaim,
								},
							},
						},
					},
					RestartPolicy: corev1.RestartPolicyNever,
				},
			},
		},
	}

	_, err := c.clientset.BatchV1().Jobs(c.namespace).Create(ctx, k8sJob, metav1.CreateOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to create kubernetes job: %w", err)
	}

	return jobName, nil
}

// GetJobStatus maps the state of a training Job to a work task status
func (c *Client) GetJobStatus(ctx context.Context, jobName string) (models.WorkTaskStatus, error) {
	job, err := c.clientset.BatchV1().Jobs(c.namespace).Get(ctx, jobName, metav1.GetOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to get job status: %w", err)
	}

	if job.Status.Succeeded > 0 {
		return models.WorkTaskStatusCompleted, nil
	}
	if job.Status.Failed > 0 {
		return models.WorkTaskStatusFailed, nil
	}
	if job.Status.Active > 0 {
		return models.WorkTaskStatusExecuting, nil
	}

	return models.WorkTaskStatusSpawned, nil
}

// DeleteJob deletes a Kubernetes Job
func (c *Client) DeleteJob(ctx context.Context, jobName string) error {
	propagationPolicy := metav1.DeletePropagationBackground
	err := c.clientset.BatchV1().Jobs(c.namespace).Delete(ctx, jobName, metav1.DeleteOptions{
		PropagationPolicy: &propagationPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

// GetActiveJobCount returns the number of active training jobs
func (c *Client) GetActiveJobCount(ctx context.Context) (int, error) {
	jobs, err := c.clientset.BatchV1().Jobs(c.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: "app=" + appLabel,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list jobs: %w", err)
	}

	activeCount := 0
	for _, job := range jobs.Items {
		if job.Status.Active > 0 {
			activeCount++
		}
	}

	return activeCount, nil
}

// Helper functions
func int32Ptr(i int32) *int32 {
	return &i
}

func parseQuantity(s string) resource.Quantity {
	q, err := resource.ParseQuantity(s)
	if err != nil {
		// Return a default value if parsing fails
		return resource.MustParse("0")
	}
	return q
}
