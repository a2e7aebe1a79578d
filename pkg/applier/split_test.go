package applier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitDocumentsOrderPreserved(t *testing.T) {
	payload := []byte(`apiVersion: v1
kind: Namespace
metadata:
  name: ns-rosa-hcp
---
apiVersion: infrastructure.cluster.x-k8s.io/v1beta2
kind: ROSANetwork
metadata:
  name: dev-network
  namespace: ns-rosa-hcp
spec:
  region: us-east-1
---
kind: ROSACluster
metadata:
  name: dev
  namespace: ns-rosa-hcp
`)

	docs, err := SplitDocuments(payload)
	require.NoError(t, err)
	require.Len(t, docs, 3)

	assert.Equal(t, "Namespace", docs[0].Kind)
	assert.Equal(t, "ns-rosa-hcp", docs[0].Name)
	assert.Equal(t, "ROSANetwork", docs[1].Kind)
	assert.Equal(t, "dev-network", docs[1].Name)
	assert.Equal(t, "ns-rosa-hcp", docs[1].Namespace)
	assert.Equal(t, "ROSACluster", docs[2].Kind)

	assert.Contains(t, string(docs[1].Payload), "region: us-east-1")
}

func TestSplitDocumentsSkipsBlankSeparators(t *testing.T) {
	payload := []byte(`---
kind: Namespace
metadata:
  name: a
---
---
kind: Namespace
metadata:
  name: b
`)

	docs, err := SplitDocuments(payload)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestSplitDocumentsMissingKind(t *testing.T) {
	_, err := SplitDocuments([]byte("metadata:\n  name: anonymous\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing kind")
}

func TestSplitDocumentsMissingName(t *testing.T) {
	_, err := SplitDocuments([]byte("kind: ROSACluster\nmetadata: {}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing metadata.name")
}

func TestSplitDocumentsInvalidYAML(t *testing.T) {
	_, err := SplitDocuments([]byte("kind: [unclosed\n"))
	assert.Error(t, err)
}
