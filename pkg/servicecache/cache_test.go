package servicecache

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/huanfeng/apkparse/pkg/pm"
)

const (
	authenticator = "android.accounts.AccountAuthenticator"
	syncAdapter   = "android.content.SyncAdapter"
)

func packageWith(name string, services map[string][]string) *pm.Package {
	pkg := pm.NewPackage(name)
	for class, types := range services {
		md := pm.Bundle{}
		for _, t := range types {
			md[t] = "@xml/" + class
		}
		pkg.Services = append(pkg.Services, &pm.Service{
			Component: pm.Component{Owner: name, ClassName: class, MetaData: md},
			Info:      &pm.ServiceInfo{},
		})
	}
	return pkg
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	c := New(filepath.Join(t.TempDir(), "services.yaml"), []string{authenticator, syncAdapter}, nil)

	first := []*pm.Package{
		packageWith("com.example.mail", map[string][]string{
			"com.example.mail.Auth": {authenticator},
			"com.example.mail.Sync": {syncAdapter, "unindexed.type"},
		}),
		packageWith("com.example.chat", map[string][]string{
			"com.example.chat.Auth": {authenticator},
		}),
		nil,
	}
	changes := c.Generate(first)
	want := []Change{
		{Kind: Added, Type: authenticator, Owner: pm.ComponentName{Package: "com.example.chat", Class: "com.example.chat.Auth"}},
		{Kind: Added, Type: authenticator, Owner: pm.ComponentName{Package: "com.example.mail", Class: "com.example.mail.Auth"}},
		{Kind: Added, Type: syncAdapter, Owner: pm.ComponentName{Package: "com.example.mail", Class: "com.example.mail.Sync"}},
	}
	if !reflect.DeepEqual(changes, want) {
		t.Fatalf("Generate() = %+v, want %+v", changes, want)
	}
	if got := c.Types(); !reflect.DeepEqual(got, []string{authenticator, syncAdapter}) {
		t.Errorf("Types() = %v", got)
	}

	if again := c.Generate(first); len(again) != 0 {
		t.Errorf("second Generate() = %+v, want no changes", again)
	}

	changes = c.Generate(first[:1])
	want = []Change{
		{Kind: Removed, Type: authenticator, Owner: pm.ComponentName{Package: "com.example.chat", Class: "com.example.chat.Auth"}},
	}
	if !reflect.DeepEqual(changes, want) {
		t.Errorf("Generate() after uninstall = %+v, want %+v", changes, want)
	}
	if owners := c.Owners(authenticator); len(owners) != 1 || owners[0].Package != "com.example.mail" {
		t.Errorf("Owners() = %v", owners)
	}
}

func TestSaveLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache", "services.yaml")
	c := New(path, []string{authenticator}, nil)
	c.Generate([]*pm.Package{
		packageWith("com.example.mail", map[string][]string{"com.example.mail.Auth": {authenticator}}),
	})
	if err := c.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded := New(path, []string{authenticator}, nil)
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(loaded.Owners(authenticator), c.Owners(authenticator)) {
		t.Errorf("loaded owners = %v, want %v", loaded.Owners(authenticator), c.Owners(authenticator))
	}

	changes := loaded.Generate(nil)
	if len(changes) != 1 || changes[0].Kind != Removed {
		t.Errorf("Generate(nil) after Load = %+v", changes)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"missing", "", false},
		{"garbage", "services: [", true},
		{"future version", "version: 99\nservices: {}\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(dir, tt.name+".yaml")
			if tt.content != "" {
				if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
					t.Fatal(err)
				}
			}
			err := New(path, nil, nil).Load()
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
