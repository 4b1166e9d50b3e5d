package znode

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDB_CreateThenGet verifies that we can fetch newly created nodes.
func TestDB_CreateThenGet(t *testing.T) {
	const rootChildName = "rootChild"
	const childChildName = "childChild"
	tests := []struct {
		name            string
		path            string
		parentEphemeral bool
		node            *ZNode
		errorExpected   bool
	}{
		{
			name: "node missing",
			path: "/random",
			node: nil,
		},
		{
			name: "parent node missing",
			path: "/x/y/z",
			node: nil,
		},
		{
			name: "parent exists, child missing",
			path: fmt.Sprintf("/%s/random", rootChildName),
			node: nil,
		},
		{
			name: "node exists, root",
			path: "/" + rootChildName,
			node: &ZNode{
				Name:     "/" + rootChildName,
				NodeType: ZNodeType_STANDARD,
				Data:     []byte(rootChildName),
			},
		},
		{
			name: "node exists, child of another node",
			path: fmt.Sprintf("/%s/%s", rootChildName, childChildName),
			node: &ZNode{
				Name:     fmt.Sprintf("/%s/%s", rootChildName, childChildName),
				NodeType: ZNodeType_STANDARD,
				Data:     []byte(childChildName),
			},
		},
		{
			name:            "parent node is ephemeral",
			path:            fmt.Sprintf("/%s/%s", rootChildName, childChildName),
			parentEphemeral: true,
			node:            nil,
			errorExpected:   true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			db := NewDB()
			_, err := db.Create(&CreateCommand{
				Path:      "/" + rootChildName,
				Data:      []byte(rootChildName),
				Ephemeral: test.parentEphemeral,
			})
			require.NoError(t, err)

			_, err = db.Create(&CreateCommand{
				Path: fmt.Sprintf("/%s/%s", rootChildName, childChildName),
				Data: []byte(childChildName),
			})
			if test.errorExpected {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			node := db.Get(test.path)
			if test.node == nil || node == nil {
				assert.Nil(t, test.node)
				assert.Nil(t, node)
			} else {
				assert.Equal(t, test.node.Name, node.Name)
				assert.Equal(t, test.node.NodeType, node.NodeType)
				assert.Equal(t, test.node.Data, node.Data)
			}
		})
	}
}

// TestDB_CreateDeleteThenGet verifies that deleted nodes can no longer be found.
func TestDB_CreateDeleteThenGet(t *testing.T) {
	const rootChildName = "rootChild"
	const childChildName = "childChild"

	db := NewDB()
	_, err := db.Create(&CreateCommand{Path: "/" + rootChildName, Data: []byte(rootChildName)})
	require.NoError(t, err)
	_, err = db.Create(&CreateCommand{
		Path: fmt.Sprintf("/%s/%s", rootChildName, childChildName),
		Data: []byte(childChildName),
	})
	require.NoError(t, err)

	require.NoError(t, db.Delete(&DeleteCommand{Path: fmt.Sprintf("/%s/%s", rootChildName, childChildName)}))

	assert.Nil(t, db.Get(fmt.Sprintf("/%s/%s", rootChildName, childChildName)))
	assert.NotNil(t, db.Get("/"+rootChildName))
}

func TestDB_Create_Sequential(t *testing.T) {
	db := NewDB()
	require.NoError(t, func() error {
		_, err := db.Create(&CreateCommand{Path: "/seq", Data: []byte("0"), Sequential: true})
		return err
	}())
	_, err := db.Create(&CreateCommand{Path: "/seq", Data: []byte("1"), Sequential: true})
	require.NoError(t, err)

	children, err := db.GetChildren("/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"seq_0", "seq_1"}, children)
}

func TestDB_SetData(t *testing.T) {
	db := NewDB()
	_, err := db.Create(&CreateCommand{Path: "/x", Data: []byte("v1")})
	require.NoError(t, err)

	node, err := db.SetData(&SetDataCommand{Path: "/x", Data: []byte("v2")})
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), node.Data)
	assert.Equal(t, int64(1), node.Version)

	_, err = db.SetData(&SetDataCommand{Path: "/missing", Data: []byte("v2")})
	assert.Error(t, err)
}

func TestDB_Exists(t *testing.T) {
	db := NewDB()
	assert.False(t, db.Exists("/x"))
	_, err := db.Create(&CreateCommand{Path: "/x"})
	require.NoError(t, err)
	assert.True(t, db.Exists("/x"))
}

func TestDB_DeleteEphemeralOwnedBy(t *testing.T) {
	db := NewDB()
	_, err := db.Create(&CreateCommand{Path: "/a", Owner: 1, Ephemeral: true})
	require.NoError(t, err)
	_, err = db.Create(&CreateCommand{Path: "/b", Owner: 2, Ephemeral: true})
	require.NoError(t, err)
	_, err = db.Create(&CreateCommand{Path: "/c", Owner: 1})
	require.NoError(t, err)

	db.DeleteEphemeralOwnedBy(1)

	assert.False(t, db.Exists("/a"))
	assert.True(t, db.Exists("/b"))
	assert.True(t, db.Exists("/c"))
}

func TestServer_NewFullName(t *testing.T) {
	tests := []struct {
		name           string
		nodeName       string
		ancestorsNames []string
		expectedResult string
	}{
		{
			name:           "no ancestors",
			nodeName:       "node",
			ancestorsNames: nil,
			expectedResult: "/node",
		},
		{
			name:           "1 ancestor",
			nodeName:       "node",
			ancestorsNames: []string{"a1"},
			expectedResult: "/a1/node",
		},
		{
			name:           "multiple ancestors",
			nodeName:       "node",
			ancestorsNames: []string{"a1", "a2", "a3"},
			expectedResult: "/a1/a2/a3/node",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			actualResult := newFullName(test.nodeName, test.ancestorsNames)
			assert.Equal(t, test.expectedResult, actualResult)
		})
	}
}
